package utils

import (
	"regexp"
	"strings"
)

// Tailwind classes applied to rendered article HTML
var contentClasses = map[string]string{
	"h1":         "text-4xl font-bold mb-4 mt-6",
	"h2":         "text-3xl font-bold mb-3 mt-5",
	"h3":         "text-2xl font-bold mb-2 mt-4",
	"h4":         "text-xl font-bold mb-2 mt-3",
	"h5":         "text-lg font-bold mb-1 mt-2",
	"h6":         "text-base font-bold mb-1 mt-2",
	"p":          "mb-4 text-base-content leading-relaxed",
	"ul":         "list-disc list-inside mb-4 ml-4 space-y-2",
	"ol":         "list-decimal list-inside mb-4 ml-4 space-y-2",
	"li":         "text-base-content",
	"blockquote": "border-l-4 border-primary pl-4 italic mb-4 text-base-content/80",
	"table":      "table table-bordered w-full mb-4",
	"code":       "bg-base-200 px-2 py-1 rounded text-sm font-mono",
	"pre":        "bg-base-200 p-4 rounded-lg mb-4 overflow-x-auto",
	"a":          "link link-primary",
	"strong":     "font-bold",
	"em":         "italic",
}

var contentTag = regexp.MustCompile(`<(h[1-6]|p|ul|ol|li|blockquote|table|code|pre|a|strong|em)(\s[^>]*)?>`)

// ProcessHTMLContent adds Tailwind classes to HTML elements that have none
func ProcessHTMLContent(content string) string {
	return contentTag.ReplaceAllStringFunc(content, func(tag string) string {
		m := contentTag.FindStringSubmatch(tag)
		attrs := m[2]
		if strings.Contains(attrs, "class=") {
			return tag
		}
		return "<" + m[1] + attrs + ` class="` + contentClasses[m[1]] + `">`
	})
}
