package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/internal/pkg/statistics"
	"github.com/PhilDL/shuken/views"
)

// AdminController renders the back-office dashboard.
type AdminController struct {
	stats *statistics.Collector
}

func NewAdminController(stats *statistics.Collector) *AdminController {
	return &AdminController{stats: stats}
}

// HandleDashboard shows counts of the main records. ?refresh=1 drops the
// cached numbers first.
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if c.Query("refresh") == "1" {
		statistics.Invalidate()
	}
	stats, err := ac.stats.Dashboard(ctx)
	if err != nil {
		log.Warnf("[Admin] Failed to load dashboard statistics: %v", err)
	}

	return render(c, "admin/dashboard", "Dashboard", fiber.Map{"Stats": stats}, views.LayoutAdmin)
}
