package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessHTMLContent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<h2>Intro</h2>", `<h2 class="text-3xl font-bold mb-3 mt-5">Intro</h2>`},
		{`<a href="/plans">plans</a>`, `<a href="/plans" class="link link-primary">plans</a>`},
		{`<p class="lead">kept</p>`, `<p class="lead">kept</p>`},
		{"<pre><code>x</code></pre>", `<pre class="bg-base-200 p-4 rounded-lg mb-4 overflow-x-auto"><code class="bg-base-200 px-2 py-1 rounded text-sm font-mono">x</code></pre>`},
		{"<abbr>HTML</abbr>", "<abbr>HTML</abbr>"},
	}
	for _, tt := range tests {
		if got := ProcessHTMLContent(tt.in); got != tt.want {
			t.Fatalf("ProcessHTMLContent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetGravatarURL(t *testing.T) {
	a := GetGravatarURL(" Staff@Example.com ", 0)
	b := GetGravatarURL("staff@example.com", 200)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "https://www.gravatar.com/avatar/"))
	assert.True(t, strings.HasSuffix(a, "?s=200&d=mp"))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":            "hello-world",
		"  Grüße aus Köln!  ":    "grusse-aus-koln",
		"Pricing -- 2025 update": "pricing-2025-update",
		"Ça va?":                 "ca-va",
		"---":                    "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
