package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/views"
)

// AdminCustomerController manages customers. Every customer is linked to a
// Stripe customer created alongside the local record.
type AdminCustomerController struct {
	customerRepo repository.CustomerRepository
	provider     billing.CustomerProvider
}

func NewAdminCustomerController(customerRepo repository.CustomerRepository, provider billing.CustomerProvider) *AdminCustomerController {
	return &AdminCustomerController{customerRepo: customerRepo, provider: provider}
}

// HandleIndex lists customers, or searches them when ?q= is set.
func (acc *AdminCustomerController) HandleIndex(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	page, offset := pageParam(c, defaultPerPage)

	var (
		customers []models.Customer
		total     int64
		err       error
	)
	if query != "" {
		customers, err = acc.customerRepo.Search(query, defaultPerPage)
		total = int64(len(customers))
	} else {
		customers, err = acc.customerRepo.List(offset, defaultPerPage)
		if err == nil {
			total, err = acc.customerRepo.Count()
		}
	}
	if err != nil {
		log.Errorf("[AdminCustomer] Failed to list customers: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load customers")
	}

	return render(c, "admin/customers/index", "Customers", fiber.Map{
		"Customers":  customers,
		"Query":      query,
		"Pagination": pagination(page, defaultPerPage, total),
	}, views.LayoutAdmin)
}

func (acc *AdminCustomerController) HandleNew(c *fiber.Ctx) error {
	return render(c, "admin/customers/form", "New customer", fiber.Map{"Customer": &models.Customer{}}, views.LayoutAdmin)
}

// HandleCreate creates the Stripe customer first and the local record
// second. A failed local save removes the Stripe customer again.
func (acc *AdminCustomerController) HandleCreate(c *fiber.Ctx) error {
	customer := &models.Customer{
		Email: models.NormalizeEmail(c.FormValue("email")),
		Name:  strings.TrimSpace(c.FormValue("name")),
		Note:  strings.TrimSpace(c.FormValue("note")),
	}
	if err := customer.Validate(); err != nil {
		return flash.Error(c, "Please enter a valid email address").Redirect("/admin/customers/new", fiber.StatusSeeOther)
	}
	if existing, err := acc.customerRepo.GetByEmail(customer.Email); err == nil && existing != nil {
		return flash.Error(c, "A customer with this email already exists").Redirect("/admin/customers/new", fiber.StatusSeeOther)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	ref, err := acc.provider.CreateCustomer(ctx, customer.Email, customer.Name)
	if err != nil {
		log.Errorf("[AdminCustomer] Stripe customer for %s failed: %v", customer.Email, err)
		return flash.Error(c, "Failed to create the customer at Stripe").Redirect("/admin/customers/new", fiber.StatusSeeOther)
	}
	customer.StripeCustomerID = &ref

	if err := acc.customerRepo.Create(customer); err != nil {
		log.Errorf("[AdminCustomer] Failed to store customer %s: %v", customer.Email, err)
		if delErr := acc.provider.DeleteCustomer(ctx, ref); delErr != nil {
			log.Warnf("[AdminCustomer] Orphaned Stripe customer %s: %v", ref, delErr)
		}
		return flash.Error(c, "Failed to create customer").Redirect("/admin/customers/new", fiber.StatusSeeOther)
	}

	return flash.Success(c, "Customer created").Redirect("/admin/customers/"+customer.ID, fiber.StatusSeeOther)
}

func (acc *AdminCustomerController) HandleEdit(c *fiber.Ctx) error {
	customer, err := acc.customerRepo.GetByID(c.Params("id"))
	if err != nil {
		return acc.notFound(c, err)
	}
	return render(c, "admin/customers/form", customer.Email, fiber.Map{"Customer": customer}, views.LayoutAdmin)
}

// HandleUpdate edits the local name and note. The email is the login identity
// and stays fixed.
func (acc *AdminCustomerController) HandleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")
	customer, err := acc.customerRepo.GetByID(id)
	if err != nil {
		return acc.notFound(c, err)
	}

	customer.Name = strings.TrimSpace(c.FormValue("name"))
	customer.Note = strings.TrimSpace(c.FormValue("note"))
	if err := customer.Validate(); err != nil {
		return flash.Error(c, "Name or note is too long").Redirect("/admin/customers/"+id, fiber.StatusSeeOther)
	}
	if err := acc.customerRepo.Update(customer); err != nil {
		log.Errorf("[AdminCustomer] Failed to update customer %s: %v", id, err)
		return flash.Error(c, "Failed to update customer").Redirect("/admin/customers/"+id, fiber.StatusSeeOther)
	}
	return flash.Success(c, "Customer updated").Redirect("/admin/customers/"+id, fiber.StatusSeeOther)
}

// HandleDelete removes the customer locally and, best effort, at Stripe.
func (acc *AdminCustomerController) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	customer, err := acc.customerRepo.GetByID(id)
	if err != nil {
		return acc.notFound(c, err)
	}
	if customer.HasActiveSubscription() {
		return flash.Error(c, "Customers with an active subscription cannot be deleted").Redirect("/admin/customers/"+id, fiber.StatusSeeOther)
	}

	if err := acc.customerRepo.Delete(id); err != nil {
		log.Errorf("[AdminCustomer] Failed to delete customer %s: %v", id, err)
		return flash.Error(c, "Failed to delete customer").Redirect("/admin/customers/"+id, fiber.StatusSeeOther)
	}

	if ref := customer.StripeID(); ref != "" {
		ctx, cancel := requestContext(c)
		defer cancel()
		if err := acc.provider.DeleteCustomer(ctx, ref); err != nil {
			log.Warnf("[AdminCustomer] Failed to delete Stripe customer %s: %v", ref, err)
		}
	}
	return flash.Success(c, "Customer deleted").Redirect("/admin/customers", fiber.StatusSeeOther)
}

func (acc *AdminCustomerController) notFound(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return flash.Error(c, "Customer not found").Redirect("/admin/customers", fiber.StatusSeeOther)
	}
	log.Errorf("[AdminCustomer] Failed to load customer: %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Failed to load customer")
}
