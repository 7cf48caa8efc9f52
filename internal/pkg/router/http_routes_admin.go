package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/app/controllers"
	"github.com/PhilDL/shuken/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(router fiber.Router) {
	adminGroup := router.Group("/admin", middleware.RequireStaff)
	adminGroup.Get("/", controllers.HandleAdminDashboard)
	adminGroup.Post("/logout", controllers.HandleAdminLogout)

	// Plans and prices
	adminGroup.Get("/plans", controllers.HandleAdminPlans)
	adminGroup.Get("/plans/new", controllers.HandleAdminPlanNew)
	adminGroup.Post("/plans/new", controllers.HandleAdminPlanCreate)
	adminGroup.Post("/plans/reconcile", middleware.RequireAdmin, controllers.HandleAdminPlansReconcile)
	adminGroup.Get("/plans/:id", controllers.HandleAdminPlanEdit)
	adminGroup.Post("/plans/:id", controllers.HandleAdminPlanUpdate)
	adminGroup.Post("/plans/:id/delete", middleware.RequireAdmin, controllers.HandleAdminPlanDelete)

	// Customers
	adminGroup.Get("/customers", controllers.HandleAdminCustomers)
	adminGroup.Get("/customers/new", controllers.HandleAdminCustomerNew)
	adminGroup.Post("/customers", controllers.HandleAdminCustomerCreate)
	adminGroup.Get("/customers/:id", controllers.HandleAdminCustomerEdit)
	adminGroup.Post("/customers/:id", controllers.HandleAdminCustomerUpdate)
	adminGroup.Post("/customers/:id/delete", middleware.RequireAdmin, controllers.HandleAdminCustomerDelete)

	// Articles
	adminGroup.Get("/posts", controllers.HandleAdminPosts)
	adminGroup.Get("/posts/new", controllers.HandleAdminPostNew)
	adminGroup.Post("/posts", controllers.HandleAdminPostCreate)
	adminGroup.Get("/posts/:id", controllers.HandleAdminPostEdit)
	adminGroup.Post("/posts/:id", controllers.HandleAdminPostUpdate)
	adminGroup.Post("/posts/:id/delete", controllers.HandleAdminPostDelete)

	// Media library
	adminGroup.Get("/media", controllers.HandleAdminMedia)
	adminGroup.Post("/media", controllers.HandleAdminMediaUpload)
	adminGroup.Post("/media/:id/delete", controllers.HandleAdminMediaDelete)

	// Settings and profile
	adminGroup.Get("/settings", middleware.RequireAdmin, controllers.HandleAdminSettings)
	adminGroup.Post("/settings", middleware.RequireAdmin, controllers.HandleAdminSettingsUpdate)
	adminGroup.Get("/settings/profile", controllers.HandleAdminProfile)
	adminGroup.Post("/settings/profile", controllers.HandleAdminProfilePassword)
}
