package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/statistics"
)

// Dependencies are the services the HTTP layer is built from. main wires the
// real implementations, tests pass fakes.
type Dependencies struct {
	Repos         *repository.Repositories
	Plans         PlanService
	Sweeper       PriceSweeper
	Customers     billing.CustomerProvider
	Webhooks      WebhookVerifier
	Subscriptions SubscriptionSync
	Members       MemberAuth
	Captcha       CaptchaVerifier
	Media         MediaLibrary
	PublicURL     string
}

// Global controller instances
var (
	adminController         *AdminController
	authController          *AuthController
	adminPlanController     *AdminPlanController
	adminCustomerController *AdminCustomerController
	adminPostController     *AdminPostController
	adminMediaController    *AdminMediaController
	adminSettingsController *AdminSettingsController
	memberController        *MemberController
	billingController       *BillingController
	publicController        *PublicController
)

// InitializeControllers builds every controller from deps.
func InitializeControllers(deps Dependencies) {
	adminController = NewAdminController(statistics.NewCollector(deps.Repos, deps.Plans))
	authController = NewAuthController(deps.Repos.User)
	adminPlanController = NewAdminPlanController(deps.Plans, deps.Sweeper)
	adminCustomerController = NewAdminCustomerController(deps.Repos.Customer, deps.Customers)
	adminPostController = NewAdminPostController(deps.Repos.Post)
	adminMediaController = NewAdminMediaController(deps.Media)
	adminSettingsController = NewAdminSettingsController(deps.Repos.Setting, deps.Repos.User)
	memberController = NewMemberController(deps.Members, deps.Repos.Customer, deps.Plans, deps.Captcha)
	billingController = NewBillingController(deps.Webhooks, deps.Subscriptions, deps.Customers, deps.Repos.Customer, deps.Plans, deps.PublicURL)
	publicController = NewPublicController(deps.Repos.Post, deps.Repos.Customer, deps.Plans)
}

// Adapter functions used by the router

func HandleAdminDashboard(c *fiber.Ctx) error { return adminController.HandleDashboard(c) }

func HandleAdminLogin(c *fiber.Ctx) error     { return authController.HandleLogin(c) }
func HandleAdminLoginPost(c *fiber.Ctx) error { return authController.HandleLoginPost(c) }
func HandleAdminLogout(c *fiber.Ctx) error    { return authController.HandleLogout(c) }

func HandleAdminPlans(c *fiber.Ctx) error          { return adminPlanController.HandleIndex(c) }
func HandleAdminPlanNew(c *fiber.Ctx) error        { return adminPlanController.HandleNew(c) }
func HandleAdminPlanCreate(c *fiber.Ctx) error     { return adminPlanController.HandleCreate(c) }
func HandleAdminPlanEdit(c *fiber.Ctx) error       { return adminPlanController.HandleEdit(c) }
func HandleAdminPlanUpdate(c *fiber.Ctx) error     { return adminPlanController.HandleUpdate(c) }
func HandleAdminPlanDelete(c *fiber.Ctx) error     { return adminPlanController.HandleDelete(c) }
func HandleAdminPlansReconcile(c *fiber.Ctx) error { return adminPlanController.HandleReconcile(c) }

func HandleAdminCustomers(c *fiber.Ctx) error       { return adminCustomerController.HandleIndex(c) }
func HandleAdminCustomerNew(c *fiber.Ctx) error     { return adminCustomerController.HandleNew(c) }
func HandleAdminCustomerCreate(c *fiber.Ctx) error  { return adminCustomerController.HandleCreate(c) }
func HandleAdminCustomerEdit(c *fiber.Ctx) error    { return adminCustomerController.HandleEdit(c) }
func HandleAdminCustomerUpdate(c *fiber.Ctx) error  { return adminCustomerController.HandleUpdate(c) }
func HandleAdminCustomerDelete(c *fiber.Ctx) error  { return adminCustomerController.HandleDelete(c) }

func HandleAdminPosts(c *fiber.Ctx) error      { return adminPostController.HandleIndex(c) }
func HandleAdminPostNew(c *fiber.Ctx) error    { return adminPostController.HandleNew(c) }
func HandleAdminPostCreate(c *fiber.Ctx) error { return adminPostController.HandleCreate(c) }
func HandleAdminPostEdit(c *fiber.Ctx) error   { return adminPostController.HandleEdit(c) }
func HandleAdminPostUpdate(c *fiber.Ctx) error { return adminPostController.HandleUpdate(c) }
func HandleAdminPostDelete(c *fiber.Ctx) error { return adminPostController.HandleDelete(c) }

func HandleAdminMedia(c *fiber.Ctx) error       { return adminMediaController.HandleIndex(c) }
func HandleAdminMediaUpload(c *fiber.Ctx) error { return adminMediaController.HandleUpload(c) }
func HandleAdminMediaDelete(c *fiber.Ctx) error { return adminMediaController.HandleDelete(c) }

func HandleAdminSettings(c *fiber.Ctx) error         { return adminSettingsController.HandleSettings(c) }
func HandleAdminSettingsUpdate(c *fiber.Ctx) error   { return adminSettingsController.HandleSettingsUpdate(c) }
func HandleAdminProfile(c *fiber.Ctx) error          { return adminSettingsController.HandleProfile(c) }
func HandleAdminProfilePassword(c *fiber.Ctx) error  { return adminSettingsController.HandlePasswordUpdate(c) }

func HandleJoin(c *fiber.Ctx) error       { return memberController.HandleJoin(c) }
func HandleJoinPost(c *fiber.Ctx) error   { return memberController.HandleJoinPost(c) }
func HandleVerify(c *fiber.Ctx) error     { return memberController.HandleVerify(c) }
func HandleVerifyPost(c *fiber.Ctx) error { return memberController.HandleVerifyPost(c) }
func HandleLogout(c *fiber.Ctx) error     { return memberController.HandleLogout(c) }
func HandleAccount(c *fiber.Ctx) error    { return memberController.HandleAccount(c) }

func HandleStripeWebhook(c *fiber.Ctx) error { return billingController.HandleStripeWebhook(c) }
func HandleCheckout(c *fiber.Ctx) error      { return billingController.HandleCheckout(c) }
func HandlePortal(c *fiber.Ctx) error        { return billingController.HandlePortal(c) }

func HandleHome(c *fiber.Ctx) error         { return publicController.HandleHome(c) }
func HandlePlans(c *fiber.Ctx) error        { return publicController.HandlePlans(c) }
func HandleArticles(c *fiber.Ctx) error     { return publicController.HandleArticles(c) }
func HandleArticleShow(c *fiber.Ctx) error  { return publicController.HandleArticleShow(c) }
