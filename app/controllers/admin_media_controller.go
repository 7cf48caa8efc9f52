package controllers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/media"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
	"github.com/PhilDL/shuken/views"
)

const mediaPerPage = 24

// AdminMediaController handles the media library.
type AdminMediaController struct {
	library MediaLibrary
}

func NewAdminMediaController(library MediaLibrary) *AdminMediaController {
	return &AdminMediaController{library: library}
}

func (amc *AdminMediaController) HandleIndex(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	page, _ := pageParam(c, mediaPerPage)
	items, total, err := amc.library.List(ctx, page, mediaPerPage)
	if err != nil {
		log.Errorf("[AdminMedia] Failed to list media: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load media")
	}
	return render(c, "admin/media/index", "Media", fiber.Map{
		"Media":      items,
		"Pagination": pagination(page, mediaPerPage, total),
	}, views.LayoutAdmin)
}

// HandleUpload accepts one image from the "file" field of a multipart form.
func (amc *AdminMediaController) HandleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return flash.Error(c, "Please choose a file").Redirect("/admin/media", fiber.StatusSeeOther)
	}
	f, err := fh.Open()
	if err != nil {
		log.Errorf("[AdminMedia] Failed to open upload %s: %v", fh.Filename, err)
		return flash.Error(c, "Failed to read the upload").Redirect("/admin/media", fiber.StatusSeeOther)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Errorf("[AdminMedia] Failed to read upload %s: %v", fh.Filename, err)
		return flash.Error(c, "Failed to read the upload").Redirect("/admin/media", fiber.StatusSeeOther)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := amc.library.Ingest(ctx, fh.Filename, data, usercontext.GetStaffID(c))
	switch {
	case err == nil:
		log.Infof("[AdminMedia] Uploaded %s as media %d", fh.Filename, item.ID)
		return flash.Success(c, "Image uploaded").Redirect("/admin/media", fiber.StatusSeeOther)
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrTooLarge), errors.Is(err, media.ErrEmptyFile):
		return flash.Error(c, err.Error()).Redirect("/admin/media", fiber.StatusSeeOther)
	default:
		log.Errorf("[AdminMedia] Failed to store upload %s: %v", fh.Filename, err)
		return flash.Error(c, "Failed to store the image").Redirect("/admin/media", fiber.StatusSeeOther)
	}
}

func (amc *AdminMediaController) HandleDelete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return flash.Error(c, "Invalid media id").Redirect("/admin/media", fiber.StatusSeeOther)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := amc.library.Delete(ctx, uint(id)); err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return flash.Error(c, "Image not found").Redirect("/admin/media", fiber.StatusSeeOther)
		}
		log.Errorf("[AdminMedia] Failed to delete media %d: %v", id, err)
		return flash.Error(c, "Failed to delete the image").Redirect("/admin/media", fiber.StatusSeeOther)
	}
	return flash.Success(c, "Image deleted").Redirect("/admin/media", fiber.StatusSeeOther)
}
