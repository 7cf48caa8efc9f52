package pricing

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/PhilDL/shuken/app/models"
)

// PlanForm is the raw admin plan form.
type PlanForm struct {
	Name            string `form:"name" validate:"required,max=255"`
	Description     string `form:"description" validate:"max=2000"`
	Monthly         string `form:"monthly" validate:"omitempty,oneof=on off"`
	Yearly          string `form:"yearly" validate:"omitempty,oneof=on off"`
	MonthlyPrice    string `form:"monthlyPrice" validate:"max=20"`
	YearlyPrice     string `form:"yearlyPrice" validate:"max=20"`
	MonthlyCurrency string `form:"monthlyCurrency" validate:"omitempty,oneof=usd eur"`
	YearlyCurrency  string `form:"yearlyCurrency" validate:"omitempty,oneof=usd eur"`
	Version         string `form:"version" validate:"omitempty,numeric"`
}

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+" "+msg)
	}
	return strings.Join(parts, ", ")
}

var allowedFormKeys = map[string]struct{}{
	"name":            {},
	"description":     {},
	"monthly":         {},
	"yearly":          {},
	"monthlyPrice":    {},
	"yearlyPrice":     {},
	"monthlyCurrency": {},
	"yearlyCurrency":  {},
	"version":         {},
	"_csrf":           {},
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// ParsePlanForm validates a submitted plan form and normalizes it into a
// PlanInput. Unknown fields are rejected.
func ParsePlanForm(values map[string][]string) (PlanInput, FieldErrors) {
	errs := FieldErrors{}
	for key := range values {
		if _, ok := allowedFormKeys[key]; !ok {
			errs[key] = "is not a known field"
		}
	}

	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	form := PlanForm{
		Name:            get("name"),
		Description:     get("description"),
		Monthly:         strings.ToLower(get("monthly")),
		Yearly:          strings.ToLower(get("yearly")),
		MonthlyPrice:    get("monthlyPrice"),
		YearlyPrice:     get("yearlyPrice"),
		MonthlyCurrency: strings.ToLower(get("monthlyCurrency")),
		YearlyCurrency:  strings.ToLower(get("yearlyCurrency")),
		Version:         get("version"),
	}

	if err := formValidator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["form"] = err.Error()
			return PlanInput{}, errs
		}
		for _, fe := range verrs {
			errs[fe.Field()] = validationMessage(fe)
		}
	}

	in := PlanInput{
		Name:        form.Name,
		Description: form.Description,
		Monthly:     parseInterval(form.Monthly, form.MonthlyPrice, form.MonthlyCurrency, "monthlyPrice", errs),
		Yearly:      parseInterval(form.Yearly, form.YearlyPrice, form.YearlyCurrency, "yearlyPrice", errs),
	}
	if form.Version != "" {
		if v, err := strconv.ParseUint(form.Version, 10, 32); err == nil {
			in.Version = uint(v)
		} else if _, seen := errs["version"]; !seen {
			errs["version"] = "must be a number"
		}
	}

	if len(errs) > 0 {
		return in, errs
	}
	return in, nil
}

func parseInterval(checkbox, price, currency, priceField string, errs FieldErrors) IntervalInput {
	in := IntervalInput{
		Enabled:  checkbox == "on",
		Currency: currency,
	}
	if in.Currency == "" {
		in.Currency = models.CurrencyEUR
	}

	if price == "" {
		if in.Enabled {
			errs[priceField] = "is required when the interval is enabled"
		}
		return in
	}
	if _, seen := errs[priceField]; seen {
		return in
	}

	amount, err := ParseAmount(price)
	switch {
	case err == nil:
		in.Amount = &amount
	case errors.Is(err, ErrAmountNotPositive) && !in.Enabled:
		// disabled intervals are submitted with a zero price
	default:
		errs[priceField] = err.Error()
	}
	return in
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "numeric":
		return "must be a number"
	default:
		return "is invalid"
	}
}
