package controllers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/pricing"
	"github.com/PhilDL/shuken/views"
)

// AdminPlanController manages subscription plans and their prices.
type AdminPlanController struct {
	plans   PlanService
	sweeper PriceSweeper
}

func NewAdminPlanController(plans PlanService, sweeper PriceSweeper) *AdminPlanController {
	return &AdminPlanController{plans: plans, sweeper: sweeper}
}

// planInterval is one interval block of the plan form.
type planInterval struct {
	Enabled  bool
	Price    string
	Currency string
}

// planForm is what the plan form template renders, either from the stored
// plan or from a rejected submission.
type planForm struct {
	ID          string
	Name        string
	Description string
	Version     uint
	Monthly     planInterval
	Yearly      planInterval
	Errors      pricing.FieldErrors
}

func planFormFromProduct(p *models.Product) planForm {
	form := planForm{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.DescriptionText(),
		Version:     p.Version,
		Monthly:     planInterval{Currency: models.CurrencyEUR},
		Yearly:      planInterval{Currency: models.CurrencyEUR},
	}
	if price := p.ActivePrice(models.PriceIntervalMonth); price != nil {
		form.Monthly = planInterval{Enabled: true, Price: pricing.FormatAmount(price.Amount), Currency: price.Currency}
	}
	if price := p.ActivePrice(models.PriceIntervalYear); price != nil {
		form.Yearly = planInterval{Enabled: true, Price: pricing.FormatAmount(price.Amount), Currency: price.Currency}
	}
	return form
}

func planFormFromValues(id string, values map[string][]string, errs pricing.FieldErrors) planForm {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	currency := func(key string) string {
		if v := get(key); v != "" {
			return v
		}
		return models.CurrencyEUR
	}
	version, _ := strconv.ParseUint(get("version"), 10, 32)
	return planForm{
		ID:          id,
		Name:        get("name"),
		Description: get("description"),
		Version:     uint(version),
		Monthly:     planInterval{Enabled: get("monthly") == "on", Price: get("monthlyPrice"), Currency: currency("monthlyCurrency")},
		Yearly:      planInterval{Enabled: get("yearly") == "on", Price: get("yearlyPrice"), Currency: currency("yearlyCurrency")},
		Errors:      errs,
	}
}

// HandleIndex lists all plans with their active prices.
func (apc *AdminPlanController) HandleIndex(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	plans, err := apc.plans.ListPlans(ctx)
	if err != nil {
		log.Errorf("[AdminPlan] Failed to list plans: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load plans")
	}
	return render(c, "admin/plans/index", "Plans", fiber.Map{"Plans": plans}, views.LayoutAdmin)
}

// HandleNew renders an empty plan form.
func (apc *AdminPlanController) HandleNew(c *fiber.Ctx) error {
	form := planForm{
		Monthly: planInterval{Currency: models.CurrencyEUR},
		Yearly:  planInterval{Currency: models.CurrencyEUR},
	}
	return render(c, "admin/plans/form", "New plan", fiber.Map{"Form": form}, views.LayoutAdmin)
}

// HandleCreate creates the plan at Stripe and locally.
func (apc *AdminPlanController) HandleCreate(c *fiber.Ctx) error {
	values := formValues(c)
	in, errs := pricing.ParsePlanForm(values)
	if errs != nil {
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "admin/plans/form", "New plan", fiber.Map{"Form": planFormFromValues("", values, errs)}, views.LayoutAdmin)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	product, err := apc.plans.CreatePlan(ctx, in)
	if product == nil {
		log.Errorf("[AdminPlan] Failed to create plan %q: %v", in.Name, err)
		return flash.Error(c, "Failed to create plan: "+planErrorMessage(err)).Redirect("/admin/plans/new", fiber.StatusSeeOther)
	}
	if err != nil {
		log.Warnf("[AdminPlan] Plan %s created with price errors: %v", product.ID, err)
		return flash.Error(c, "Plan created, but some prices could not be set: "+planErrorMessage(err)).
			Redirect("/admin/plans/"+product.ID, fiber.StatusSeeOther)
	}

	log.Infof("[AdminPlan] Created plan %s", product.ID)
	return flash.Success(c, "Plan created").Redirect("/admin/plans/"+product.ID, fiber.StatusSeeOther)
}

// HandleEdit renders the plan form together with its price change history.
func (apc *AdminPlanController) HandleEdit(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Params("id")
	product, err := apc.plans.GetPlan(ctx, id)
	if err != nil {
		return apc.planLoadFailed(c, id, err)
	}
	changes, err := apc.plans.PriceChanges(ctx, id)
	if err != nil {
		log.Warnf("[AdminPlan] Failed to load price changes for %s: %v", id, err)
	}

	return render(c, "admin/plans/form", product.Name, fiber.Map{
		"Form":    planFormFromProduct(product),
		"Plan":    product,
		"Changes": changes,
	}, views.LayoutAdmin)
}

// HandleUpdate saves the descriptor and reconciles both intervals. Field
// errors re-render the form with 422; everything else redirects.
func (apc *AdminPlanController) HandleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")
	values := formValues(c)
	in, errs := pricing.ParsePlanForm(values)
	if errs != nil {
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "admin/plans/form", "Edit plan", fiber.Map{"Form": planFormFromValues(id, values, errs)}, views.LayoutAdmin)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	_, err := apc.plans.UpdatePlan(ctx, id, in)
	switch {
	case err == nil:
		log.Infof("[AdminPlan] Updated plan %s", id)
		return flash.Success(c, "Plan updated").Redirect("/admin/plans/"+id, fiber.StatusSeeOther)
	case errors.Is(err, pricing.ErrPlanNotFound):
		return flash.Error(c, "Plan not found").Redirect("/admin/plans", fiber.StatusSeeOther)
	default:
		log.Warnf("[AdminPlan] Failed to update plan %s: %v", id, err)
		return flash.Error(c, planErrorMessage(err)).Redirect("/admin/plans/"+id, fiber.StatusSeeOther)
	}
}

// HandleDelete removes a plan without subscribers.
func (apc *AdminPlanController) HandleDelete(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Params("id")
	if err := apc.plans.DeletePlan(ctx, id); err != nil {
		if errors.Is(err, pricing.ErrPlanNotFound) {
			return flash.Error(c, "Plan not found").Redirect("/admin/plans", fiber.StatusSeeOther)
		}
		log.Warnf("[AdminPlan] Failed to delete plan %s: %v", id, err)
		return flash.Error(c, "Failed to delete plan: "+planErrorMessage(err)).Redirect("/admin/plans/"+id, fiber.StatusSeeOther)
	}
	return flash.Success(c, "Plan deleted").Redirect("/admin/plans", fiber.StatusSeeOther)
}

// HandleReconcile runs one sweep of unfinished price changes on demand.
func (apc *AdminPlanController) HandleReconcile(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := apc.sweeper.Sweep(ctx)
	if err != nil {
		log.Errorf("[AdminPlan] Manual reconcile failed: %v", err)
		return flash.Error(c, "Reconcile failed: "+err.Error()).Redirect("/admin/plans", fiber.StatusSeeOther)
	}
	msg := fmt.Sprintf("Reconcile finished: %d completed, %d retried, %d failed, %d skipped",
		res.Completed, res.Retried, res.Failed, res.Skipped)
	return flash.Info(c, msg).Redirect("/admin/plans", fiber.StatusSeeOther)
}

func (apc *AdminPlanController) planLoadFailed(c *fiber.Ctx, id string, err error) error {
	if errors.Is(err, pricing.ErrPlanNotFound) {
		return flash.Error(c, "Plan not found").Redirect("/admin/plans", fiber.StatusSeeOther)
	}
	log.Errorf("[AdminPlan] Failed to load plan %s: %v", id, err)
	return fiber.NewError(fiber.StatusInternalServerError, "Failed to load plan")
}

// planErrorMessage turns a pricing failure into text for the flash message.
func planErrorMessage(err error) string {
	var ie *pricing.IntervalError
	var pe *billing.ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pricing.ErrStaleVersion):
		return "This plan was changed in the meantime. Review the current values and submit again."
	case errors.Is(err, pricing.ErrPlanLocked):
		return "This plan is being updated right now. Try again in a moment."
	case errors.Is(err, pricing.ErrPlanInUse):
		return "The plan still has subscribers."
	case errors.As(err, &ie):
		return err.Error()
	case errors.As(err, &pe):
		if pe.Retryable {
			return "Stripe is not reachable right now. Try again in a moment."
		}
		return "Stripe rejected the change: " + pe.Err.Error()
	default:
		return err.Error()
	}
}
