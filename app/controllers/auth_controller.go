package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/session"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
	"github.com/PhilDL/shuken/views"
)

// loginFailed is shown for unknown emails and wrong passwords alike.
const loginFailed = "There is a problem with the login process"

// AuthController handles staff sign-in to the back-office.
type AuthController struct {
	userRepo repository.UserRepository
}

func NewAuthController(userRepo repository.UserRepository) *AuthController {
	return &AuthController{userRepo: userRepo}
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	if usercontext.GetUserContext(c).IsStaff() {
		return c.Redirect("/admin")
	}
	return render(c, "admin/login", "Sign in", nil, views.LayoutPublic)
}

func (ac *AuthController) HandleLoginPost(c *fiber.Ctx) error {
	email := c.FormValue("email")
	user, err := ac.userRepo.GetByEmail(email)
	if err != nil || !user.CheckPassword(c.FormValue("password")) {
		log.Infof("[Auth] Failed staff login for %q from %s", email, GetClientIP(c))
		return flash.Error(c, loginFailed).Redirect("/admin/login", fiber.StatusSeeOther)
	}

	err = session.Login(c, map[string]interface{}{
		usercontext.KeyStaffID:   user.ID,
		usercontext.KeyStaffName: user.Name,
		usercontext.KeyStaffRole: user.Role,
	})
	if err != nil {
		log.Errorf("[Auth] Failed to start session for staff %d: %v", user.ID, err)
		return flash.Error(c, "Something went wrong, please try again").Redirect("/admin/login", fiber.StatusSeeOther)
	}
	if err := ac.userRepo.UpdateLastLogin(user.ID, time.Now().UTC()); err != nil {
		log.Warnf("[Auth] Failed to record last login of staff %d: %v", user.ID, err)
	}

	log.Infof("[Auth] Staff %d signed in", user.ID)
	return flash.Success(c, "Welcome back, "+user.Name).Redirect("/admin", fiber.StatusSeeOther)
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c, usercontext.KeyStaffID, usercontext.KeyStaffName, usercontext.KeyStaffRole); err != nil {
		log.Warnf("[Auth] Failed to end staff session: %v", err)
	}
	return flash.Info(c, "You have been signed out").Redirect("/admin/login", fiber.StatusSeeOther)
}
