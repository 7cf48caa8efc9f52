package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
	"github.com/PhilDL/shuken/internal/pkg/utils"
	"github.com/PhilDL/shuken/views"
)

// AdminPostController handles the article editor of the back-office
type AdminPostController struct {
	postRepo repository.PostRepository
}

func NewAdminPostController(postRepo repository.PostRepository) *AdminPostController {
	return &AdminPostController{postRepo: postRepo}
}

func (apc *AdminPostController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[AdminPost] %s: %v", message, err)
	return flash.Error(c, message).Redirect("/admin/posts", fiber.StatusSeeOther)
}

// HandleIndex lists all articles, drafts included.
func (apc *AdminPostController) HandleIndex(c *fiber.Ctx) error {
	page, offset := pageParam(c, defaultPerPage)
	posts, err := apc.postRepo.GetAll(offset, defaultPerPage)
	if err != nil {
		return apc.handleError(c, "Failed to load articles", err)
	}
	total, err := apc.postRepo.Count()
	if err != nil {
		return apc.handleError(c, "Failed to count articles", err)
	}
	return render(c, "admin/posts/index", "Articles", fiber.Map{
		"Posts":      posts,
		"Pagination": pagination(page, defaultPerPage, total),
	}, views.LayoutAdmin)
}

func (apc *AdminPostController) HandleNew(c *fiber.Ctx) error {
	return render(c, "admin/posts/form", "New article", fiber.Map{"Post": &models.Post{}}, views.LayoutAdmin)
}

// HandleCreate stores a new article. A slug that is already taken gets the
// current unix time appended.
func (apc *AdminPostController) HandleCreate(c *fiber.Ctx) error {
	post := &models.Post{AuthorID: usercontext.GetStaffID(c)}
	bindPostForm(c, post)

	if err := post.Validate(); err != nil {
		return flash.Error(c, "Title, slug and content are required").Redirect("/admin/posts/new", fiber.StatusSeeOther)
	}

	exists, err := apc.postRepo.SlugExists(post.Slug)
	if err != nil {
		return apc.handleError(c, "Failed to check the slug", err)
	}
	if exists {
		post.Slug = fmt.Sprintf("%s-%d", post.Slug, time.Now().Unix())
	}

	if err := apc.postRepo.Create(post); err != nil {
		log.Errorf("[AdminPost] Failed to create article: %v", err)
		return flash.Error(c, "Failed to create article").Redirect("/admin/posts/new", fiber.StatusSeeOther)
	}
	return flash.Success(c, "Article created").Redirect("/admin/posts", fiber.StatusSeeOther)
}

func (apc *AdminPostController) HandleEdit(c *fiber.Ctx) error {
	post, ok, err := apc.load(c)
	if !ok {
		return err
	}
	return render(c, "admin/posts/form", post.Title, fiber.Map{"Post": post}, views.LayoutAdmin)
}

func (apc *AdminPostController) HandleUpdate(c *fiber.Ctx) error {
	post, ok, err := apc.load(c)
	if !ok {
		return err
	}
	editURL := fmt.Sprintf("/admin/posts/%d", post.ID)

	bindPostForm(c, post)
	if err := post.Validate(); err != nil {
		return flash.Error(c, "Title, slug and content are required").Redirect(editURL, fiber.StatusSeeOther)
	}

	exists, err := apc.postRepo.SlugExistsExceptID(post.Slug, post.ID)
	if err != nil {
		return apc.handleError(c, "Failed to check the slug", err)
	}
	if exists {
		return flash.Error(c, "The slug is already used by another article").Redirect(editURL, fiber.StatusSeeOther)
	}

	if err := apc.postRepo.Update(post); err != nil {
		log.Errorf("[AdminPost] Failed to update article %d: %v", post.ID, err)
		return flash.Error(c, "Failed to update article").Redirect(editURL, fiber.StatusSeeOther)
	}
	return flash.Success(c, "Article updated").Redirect("/admin/posts", fiber.StatusSeeOther)
}

func (apc *AdminPostController) HandleDelete(c *fiber.Ctx) error {
	post, ok, err := apc.load(c)
	if !ok {
		return err
	}
	if err := apc.postRepo.Delete(post.ID); err != nil {
		return apc.handleError(c, "Failed to delete article", err)
	}
	return flash.Success(c, "Article deleted").Redirect("/admin/posts", fiber.StatusSeeOther)
}

// load resolves :id. When ok is false the response has already been
// written and the caller returns err.
func (apc *AdminPostController) load(c *fiber.Ctx) (*models.Post, bool, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return nil, false, flash.Error(c, "Invalid article id").Redirect("/admin/posts", fiber.StatusSeeOther)
	}
	post, err := apc.postRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, flash.Error(c, "Article not found").Redirect("/admin/posts", fiber.StatusSeeOther)
		}
		return nil, false, apc.handleError(c, "Failed to load article", err)
	}
	return post, true, nil
}

func bindPostForm(c *fiber.Ctx, post *models.Post) {
	post.Title = strings.TrimSpace(c.FormValue("title"))
	post.Excerpt = strings.TrimSpace(c.FormValue("excerpt"))
	post.Content = c.FormValue("content")
	post.FeaturedImageURL = strings.TrimSpace(c.FormValue("featured_image_url"))
	post.Published = checked(c.FormValue("published"))
	post.MembersOnly = checked(c.FormValue("members_only"))

	slug := utils.Slugify(c.FormValue("slug"))
	if slug == "" {
		slug = utils.Slugify(post.Title)
	}
	post.Slug = slug
}

func checked(v string) bool {
	return v == "1" || v == "on"
}
