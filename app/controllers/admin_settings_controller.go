package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
	"github.com/PhilDL/shuken/views"
)

const minPasswordLength = 8

// AdminSettingsController handles site settings and the staff profile.
type AdminSettingsController struct {
	settingRepo repository.SettingRepository
	userRepo    repository.UserRepository
}

func NewAdminSettingsController(settingRepo repository.SettingRepository, userRepo repository.UserRepository) *AdminSettingsController {
	return &AdminSettingsController{settingRepo: settingRepo, userRepo: userRepo}
}

func (asc *AdminSettingsController) HandleSettings(c *fiber.Ctx) error {
	settings, err := asc.settingRepo.Get()
	if err != nil {
		log.Errorf("[AdminSettings] Failed to load settings: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load settings")
	}
	return render(c, "admin/settings", "Settings", fiber.Map{"Form": settings}, views.LayoutAdmin)
}

func (asc *AdminSettingsController) HandleSettingsUpdate(c *fiber.Ctx) error {
	settings := &models.AppSettings{
		SiteTitle:             strings.TrimSpace(c.FormValue("site_title")),
		SiteDescription:       strings.TrimSpace(c.FormValue("site_description")),
		SupportEmail:          strings.TrimSpace(c.FormValue("support_email")),
		CustomerPortalEnabled: c.FormValue("customer_portal_enabled") == "on",
	}
	if err := settings.Validate(); err != nil {
		return flash.Error(c, "Invalid settings: "+err.Error()).Redirect("/admin/settings", fiber.StatusSeeOther)
	}
	if err := asc.settingRepo.Save(settings); err != nil {
		log.Errorf("[AdminSettings] Failed to save settings: %v", err)
		return flash.Error(c, "Failed to save settings").Redirect("/admin/settings", fiber.StatusSeeOther)
	}
	log.Infof("[AdminSettings] Settings updated by staff %d", usercontext.GetStaffID(c))
	return flash.Success(c, "Settings saved").Redirect("/admin/settings", fiber.StatusSeeOther)
}

func (asc *AdminSettingsController) HandleProfile(c *fiber.Ctx) error {
	user, err := asc.userRepo.GetByID(usercontext.GetStaffID(c))
	if err != nil {
		log.Errorf("[AdminSettings] Failed to load staff %d: %v", usercontext.GetStaffID(c), err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load profile")
	}
	return render(c, "admin/profile", "Profile", fiber.Map{"Staff": user}, views.LayoutAdmin)
}

// HandlePasswordUpdate changes the signed-in staff member's password after
// checking the current one.
func (asc *AdminSettingsController) HandlePasswordUpdate(c *fiber.Ctx) error {
	user, err := asc.userRepo.GetByID(usercontext.GetStaffID(c))
	if err != nil {
		log.Errorf("[AdminSettings] Failed to load staff %d: %v", usercontext.GetStaffID(c), err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load profile")
	}

	current := c.FormValue("current_password")
	next := c.FormValue("new_password")
	confirm := c.FormValue("confirm_password")

	switch {
	case !user.CheckPassword(current):
		return flash.Error(c, "The current password is wrong").Redirect("/admin/settings/profile", fiber.StatusSeeOther)
	case len(next) < minPasswordLength:
		return flash.Error(c, "The new password must have at least 8 characters").Redirect("/admin/settings/profile", fiber.StatusSeeOther)
	case next != confirm:
		return flash.Error(c, "The passwords do not match").Redirect("/admin/settings/profile", fiber.StatusSeeOther)
	}

	if err := user.SetPassword(next); err != nil {
		log.Errorf("[AdminSettings] Failed to hash password: %v", err)
		return flash.Error(c, "Failed to change the password").Redirect("/admin/settings/profile", fiber.StatusSeeOther)
	}
	if err := asc.userRepo.Update(user); err != nil {
		log.Errorf("[AdminSettings] Failed to store password of staff %d: %v", user.ID, err)
		return flash.Error(c, "Failed to change the password").Redirect("/admin/settings/profile", fiber.StatusSeeOther)
	}
	return flash.Success(c, "Password changed").Redirect("/admin/settings/profile", fiber.StatusSeeOther)
}
