package views

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
	"github.com/yuin/goldmark"

	"github.com/PhilDL/shuken/internal/pkg/pricing"
	"github.com/PhilDL/shuken/internal/pkg/utils"
)

// Layout names passed to fiber's Render.
const (
	LayoutPublic = "layouts/public"
	LayoutAdmin  = "layouts/admin"
)

// NewEngine loads the templates below dir and registers the helpers they use.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	for name, fn := range Funcs() {
		engine.AddFunc(name, fn)
	}
	return engine
}

// Funcs returns the template helpers.
func Funcs() map[string]interface{} {
	return map[string]interface{}{
		"money":    Money,
		"date":     Date,
		"gravatar": func(email string) string { return utils.GetGravatarURL(email, 64) },
		"markdown": Markdown,
		"interval": IntervalLabel,
	}
}

// Money formats minor units with an upper-case currency code, e.g. "9.99 EUR".
func Money(amount int64, currency string) string {
	return pricing.FormatAmount(amount) + " " + strings.ToUpper(currency)
}

// Date formats time.Time and *time.Time values; nil renders as a dash.
func Date(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04")
	case *time.Time:
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04")
	default:
		return "-"
	}
}

// Markdown renders post content. Raw HTML in the source is not passed through.
func Markdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(utils.ProcessHTMLContent(buf.String()))
}

func IntervalLabel(interval string) string {
	switch interval {
	case "month":
		return "monthly"
	case "year":
		return "yearly"
	default:
		return interval
	}
}
