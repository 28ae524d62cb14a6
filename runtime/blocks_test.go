package runtime

import (
	"strings"
	"testing"
)

func TestBlocksAndShowBlock(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "inline block shown later",
			source:   "{% block 'greeting' %}  Hi  {% end_block %}[{% show_block 'greeting' %}]",
			expected: "[Hi]",
		},
		{
			name:     "last definition wins",
			source:   "{% block 'a' %}first{% end_block %}{% block 'a' %}second{% end_block %}{% show_block 'a' %}",
			expected: "second",
		},
		{
			name:     "labelled end tag",
			source:   "{% block 'a' %}x{% end_block 'a' %}{% show_block 'a' %}",
			expected: "x",
		},
		{
			name:     "nested blocks register separately",
			source:   "{% block 'outer' %}<{% block 'inner' %}i{% end_block %}>{% end_block %}{% show_block 'outer' %}{% show_block 'inner' %}",
			expected: "<>i",
		},
		{
			name:     "multi-line body is trimmed",
			source:   "{% block 'list' %}\n    <li>a</li>\n    <li>b</li>\n{% end_block %}\n{% show_block 'list' %}",
			expected: "\n<li>a</li>\n<li>b</li>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderSource(t, tt.source, nil); got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBlockErrors(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{"{% end_block %}", "end_block used without block start"},
		{"{% block 'a' %}\nx", "missing end_block for 'a'"},
		{"{% block 'a' %}{% block 'b' %}{% end_block 'a' %}{% end_block %}", "missing end_block for 'b'"},
		{"{% block '42' %}x{% end_block %}", "invalid block name '42'"},
		{"{% show_block 'nope' %}", "undefined block 'nope'"},
	}

	for _, tt := range tests {
		_, err := NewEnvironment().RenderString(tt.source, nil)
		if !IsTemplateParsingError(err) {
			t.Fatalf("%q: expected template parsing error, got %v", tt.source, err)
		}
		if !strings.Contains(err.Error(), tt.message) {
			t.Fatalf("%q: expected error containing %q, got %v", tt.source, tt.message, err)
		}
	}
}

func TestExtendSubstitutesChildBlocks(t *testing.T) {
	env := newTestEnvironment(map[string]string{
		"layouts.base": `<html>
<title>{% show_block 'title' %}</title>
{% block 'title' %}Default{% end_block %}
<body>
{% show_block 'content' %}
</body>
</html>`,
		"pages.home": `{% extend 'layouts.base' %}
{% block 'title' %}Home{% end_block %}
{% block 'content' %}
<h1>{{ $heading }}</h1>
{% end_block %}`,
	})

	out, err := env.Render("pages.home", map[string]interface{}{"heading": "Welcome"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	expected := "<html>\n<title>Home</title>\n\n<body>\n<h1>Welcome</h1>\n</body>\n</html>"
	if strings.TrimSpace(out) != expected {
		t.Fatalf("expected %q, got %q", expected, out)
	}
}

func TestExtendChain(t *testing.T) {
	env := newTestEnvironment(map[string]string{
		"base":   "[{% show_block 'body' %}]",
		"middle": "{% extend 'base' %}\n{% block 'body' %}middle {% show_block 'extra' %}{% end_block %}",
		"leaf":   "{% extend 'middle' %}\n{% block 'extra' %}leaf{% end_block %}",
	})

	out, err := env.Render("leaf", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(out) != "[middle leaf]" {
		t.Fatalf("expected %q, got %q", "[middle leaf]", out)
	}
}

func TestInclude(t *testing.T) {
	env := newTestEnvironment(map[string]string{
		"partials.nav": "<nav>{{ $active }}</nav>",
		"page":         "<header>{% include 'partials.nav' %}</header>\n{% include 'partials.nav' %}",
	})

	out, err := env.Render("page", map[string]interface{}{"active": "home"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	expected := "<header><nav>home</nav></header>\n<nav>home</nav>"
	if out != expected {
		t.Fatalf("expected %q, got %q", expected, out)
	}
}

func TestDefine(t *testing.T) {
	out := renderSource(t, "{% define $total = $price * 2 %}Total: {{ $total }}", map[string]interface{}{"price": 21})
	if out != "Total: 42" {
		t.Fatalf("expected %q, got %q", "Total: 42", out)
	}

	out = renderSource(t, "{% define $items = [3, 1] %}\n{% for $i in $items %}{{ $i }}{% end_for %}", nil)
	if strings.TrimSpace(out) != "31" {
		t.Fatalf("expected %q, got %q", "31", out)
	}
}

func TestDefineScopeErrors(t *testing.T) {
	sources := []string{
		"{% if (true) %}{% define $x = 1 %}{% end_if %}",
		"{% for $i in 2 %}\n{% define $x = $i %}\n{% end_for %}",
		"{% block 'b' %}{% define $x = 1 %}{% end_block %}",
	}
	for _, source := range sources {
		_, err := NewEnvironment().RenderString(source, nil)
		if !IsTemplateParsingError(err) {
			t.Fatalf("%q: expected template parsing error, got %v", source, err)
		}
		if !strings.Contains(err.Error(), "define is not allowed") {
			t.Fatalf("%q: unexpected error %v", source, err)
		}
	}
}
