package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/entitlements"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
	"github.com/PhilDL/shuken/views"
)

const articlesPerPage = 10

// PublicController renders the public site.
type PublicController struct {
	postRepo     repository.PostRepository
	customerRepo repository.CustomerRepository
	plans        PlanService
}

func NewPublicController(postRepo repository.PostRepository, customerRepo repository.CustomerRepository, plans PlanService) *PublicController {
	return &PublicController{postRepo: postRepo, customerRepo: customerRepo, plans: plans}
}

func (pc *PublicController) HandleHome(c *fiber.Ctx) error {
	posts, err := pc.postRepo.GetPublished(0, 3)
	if err != nil {
		log.Warnf("[Public] Failed to load latest articles: %v", err)
	}
	return render(c, "home", "", fiber.Map{"Posts": posts}, views.LayoutPublic)
}

// HandlePlans lists the plans that have at least one active price.
func (pc *PublicController) HandlePlans(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	all, err := pc.plans.ListPlans(ctx)
	if err != nil {
		log.Errorf("[Public] Failed to list plans: %v", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Plans are not available right now")
	}
	plans := all[:0]
	for _, p := range all {
		if len(p.Prices) > 0 {
			plans = append(plans, p)
		}
	}
	return render(c, "plans", "Plans", fiber.Map{"Plans": plans}, views.LayoutPublic)
}

func (pc *PublicController) HandleArticles(c *fiber.Ctx) error {
	page, offset := pageParam(c, articlesPerPage)
	posts, err := pc.postRepo.GetPublished(offset, articlesPerPage)
	if err != nil {
		log.Errorf("[Public] Failed to load articles: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load articles")
	}
	total, err := pc.postRepo.CountPublished()
	if err != nil {
		log.Warnf("[Public] Failed to count articles: %v", err)
	}
	return render(c, "articles/index", "Articles", fiber.Map{
		"Posts":      posts,
		"Pagination": pagination(page, articlesPerPage, total),
	}, views.LayoutPublic)
}

func (pc *PublicController) HandleArticleShow(c *fiber.Ctx) error {
	post, err := pc.postRepo.GetPublishedBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Article not found")
		}
		log.Errorf("[Public] Failed to load article %s: %v", c.Params("slug"), err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load article")
	}
	return render(c, "articles/show", post.Title, fiber.Map{
		"Post":   post,
		"Locked": !entitlements.CanRead(pc.accessLevel(c), post),
	}, views.LayoutPublic)
}

// accessLevel resolves the entitlement of the signed-in customer, if any.
func (pc *PublicController) accessLevel(c *fiber.Ctx) entitlements.Level {
	id := usercontext.GetCustomerID(c)
	if id == "" {
		return entitlements.LevelVisitor
	}
	customer, err := pc.customerRepo.GetByID(id)
	if err != nil {
		log.Warnf("[Public] Session customer %s not found: %v", id, err)
		return entitlements.LevelVisitor
	}
	return entitlements.For(customer)
}
