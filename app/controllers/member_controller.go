package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/memberauth"
	"github.com/PhilDL/shuken/internal/pkg/session"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
	"github.com/PhilDL/shuken/views"
)

// pendingEmailKey remembers which address a code was sent to.
const pendingEmailKey = "pending_email"

// MemberController handles passwordless sign-in and the customer account.
type MemberController struct {
	auth         MemberAuth
	customerRepo repository.CustomerRepository
	plans        PlanService
	captcha      CaptchaVerifier
}

func NewMemberController(auth MemberAuth, customerRepo repository.CustomerRepository, plans PlanService, captcha CaptchaVerifier) *MemberController {
	return &MemberController{auth: auth, customerRepo: customerRepo, plans: plans, captcha: captcha}
}

func (mc *MemberController) HandleJoin(c *fiber.Ctx) error {
	if usercontext.GetUserContext(c).IsCustomer() {
		return c.Redirect("/account")
	}
	return render(c, "join", "Sign in", fiber.Map{"CaptchaSiteKey": mc.captchaSiteKey()}, views.LayoutPublic)
}

// HandleJoinPost mails a sign-in code. Unknown addresses get one too; the
// account is created on first successful verification.
func (mc *MemberController) HandleJoinPost(c *fiber.Ctx) error {
	email := models.NormalizeEmail(c.FormValue("email"))

	ctx, cancel := requestContext(c)
	defer cancel()

	if mc.captchaEnabled() {
		if err := mc.captcha.Verify(ctx, c.FormValue("h-captcha-response"), GetClientIP(c)); err != nil {
			log.Infof("[Member] Captcha rejected for %s: %v", GetClientIP(c), err)
			return flash.Error(c, "Please complete the captcha").Redirect("/join", fiber.StatusSeeOther)
		}
	}

	if err := mc.auth.SendCode(ctx, email); err != nil {
		if errors.Is(err, memberauth.ErrInvalidEmail) || errors.Is(err, memberauth.ErrRateLimited) {
			return flash.Error(c, err.Error()).Redirect("/join", fiber.StatusSeeOther)
		}
		log.Errorf("[Member] Failed to send code to %s: %v", email, err)
		return flash.Error(c, "We could not send the code, please try again later").Redirect("/join", fiber.StatusSeeOther)
	}

	if err := session.SetSessionValue(c, pendingEmailKey, email); err != nil {
		log.Warnf("[Member] Failed to remember pending email: %v", err)
	}
	return flash.Info(c, "We sent a sign-in code to "+email).Redirect("/verify", fiber.StatusSeeOther)
}

// HandleVerify signs in through a magic link, or shows the code form.
func (mc *MemberController) HandleVerify(c *fiber.Ctx) error {
	if token := c.Query("token"); token != "" {
		ctx, cancel := requestContext(c)
		defer cancel()

		email, err := mc.auth.VerifyMagicLink(ctx, token)
		if err != nil {
			return mc.verifyFailed(c, err)
		}
		return mc.signIn(c, email)
	}

	return render(c, "verify", "Enter your code", fiber.Map{
		"Email": session.GetSessionValue(c, pendingEmailKey),
	}, views.LayoutPublic)
}

func (mc *MemberController) HandleVerifyPost(c *fiber.Ctx) error {
	email := c.FormValue("email")
	if email == "" {
		email = session.GetSessionValue(c, pendingEmailKey)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	verified, err := mc.auth.VerifyCode(ctx, email, c.FormValue("code"))
	if err != nil {
		return mc.verifyFailed(c, err)
	}
	return mc.signIn(c, verified)
}

func (mc *MemberController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c, usercontext.KeyCustomerID, usercontext.KeyCustomerEmail); err != nil {
		log.Warnf("[Member] Failed to end customer session: %v", err)
	}
	return flash.Info(c, "You have been signed out").Redirect("/", fiber.StatusSeeOther)
}

// HandleAccount shows the subscription of the signed-in customer and the
// plans they can choose from.
func (mc *MemberController) HandleAccount(c *fiber.Ctx) error {
	customer, err := mc.customerRepo.GetByID(usercontext.GetCustomerID(c))
	if err != nil {
		log.Warnf("[Member] Session customer %s not found: %v", usercontext.GetCustomerID(c), err)
		_ = session.Logout(c, usercontext.KeyCustomerID, usercontext.KeyCustomerEmail)
		return c.Redirect("/join", fiber.StatusSeeOther)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	plans, err := mc.plans.ListPlans(ctx)
	if err != nil {
		log.Warnf("[Member] Failed to list plans: %v", err)
	}
	return render(c, "account", "Your account", fiber.Map{
		"Customer": customer,
		"Plans":    plans,
	}, views.LayoutPublic)
}

func (mc *MemberController) captchaEnabled() bool {
	return mc.captcha != nil && mc.captcha.Enabled()
}

func (mc *MemberController) captchaSiteKey() string {
	if !mc.captchaEnabled() {
		return ""
	}
	return mc.captcha.SiteKey()
}

func (mc *MemberController) signIn(c *fiber.Ctx, email string) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	customer, err := mc.auth.LoginCustomer(ctx, email)
	if err != nil {
		log.Errorf("[Member] Failed to load customer %s: %v", email, err)
		return flash.Error(c, "Sign-in failed, please try again").Redirect("/join", fiber.StatusSeeOther)
	}

	err = session.Login(c, map[string]interface{}{
		usercontext.KeyCustomerID:    customer.ID,
		usercontext.KeyCustomerEmail: customer.Email,
	})
	if err != nil {
		log.Errorf("[Member] Failed to start session for %s: %v", customer.ID, err)
		return flash.Error(c, "Sign-in failed, please try again").Redirect("/join", fiber.StatusSeeOther)
	}
	return flash.Success(c, "You are signed in").Redirect("/account", fiber.StatusSeeOther)
}

func (mc *MemberController) verifyFailed(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, memberauth.ErrCodeInvalid), errors.Is(err, memberauth.ErrCodeExpired):
		return flash.Error(c, err.Error()).Redirect("/verify", fiber.StatusSeeOther)
	case errors.Is(err, memberauth.ErrTooManyAttempts):
		return flash.Error(c, err.Error()).Redirect("/join", fiber.StatusSeeOther)
	default:
		log.Errorf("[Member] Verification failed: %v", err)
		return flash.Error(c, "Sign-in failed, please try again").Redirect("/join", fiber.StatusSeeOther)
	}
}
