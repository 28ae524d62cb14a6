package runtime

import (
	"strings"
	"testing"
)

func TestConditions(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "true without else",
			source:   "a{% if (true) %}b{% end_if %}c",
			expected: "abc",
		},
		{
			name:     "false without else",
			source:   "a{% if (false) %}b{% end_if %}c",
			expected: "ac",
		},
		{
			name:     "else",
			source:   "{% if ($n > 5) %}big{% else %}small{% end_if %}",
			data:     map[string]interface{}{"n": 3},
			expected: "small",
		},
		{
			name:     "else_if chain picks first true",
			source:   "{% if ($n == 1) %}one{% else_if ($n > 1) %}many{% else_if ($n > 0) %}unreached{% else %}none{% end_if %}",
			data:     map[string]interface{}{"n": 2},
			expected: "many",
		},
		{
			name:     "nested inline",
			source:   "{% if ($a) %}A{% if ($b) %}B{% end_if %}{% else %}-{% end_if %}",
			data:     map[string]interface{}{"a": true, "b": false},
			expected: "A",
		},
		{
			name:     "labels are accepted",
			source:   "{% if (false) %}x{% else 1 %}y{% end_if 1 %}",
			expected: "y",
		},
		{
			name:     "truthiness of strings",
			source:   "{% if ('0') %}yes{% else %}no{% end_if %}",
			expected: "no",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderSource(t, tt.source, tt.data); got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMultiLineConditions(t *testing.T) {
	source := `<div>
{% if ($user) %}
<p>Hello {{ $user }}</p>
{% if ($admin) %}
<p>admin</p>
{% end_if %}
{% else %}
<p>Sign in</p>
{% end_if %}
</div>`

	out := renderSource(t, source, map[string]interface{}{"user": "Ada", "admin": false})
	if !strings.Contains(out, "<p>Hello Ada</p>") {
		t.Fatalf("expected greeting in output:\n%s", out)
	}
	for _, unexpected := range []string{"admin", "Sign in", "{%"} {
		if strings.Contains(out, unexpected) {
			t.Fatalf("unexpected %q in output:\n%s", unexpected, out)
		}
	}
	if !strings.HasPrefix(out, "<div>\n") || !strings.HasSuffix(out, "\n</div>") {
		t.Fatalf("expected surrounding text to be kept:\n%s", out)
	}

	out = renderSource(t, source, map[string]interface{}{"user": "", "admin": true})
	if !strings.Contains(out, "<p>Sign in</p>") || strings.Contains(out, "Hello") {
		t.Fatalf("expected else branch:\n%s", out)
	}
}

func TestConditionsSkipUnselectedBranches(t *testing.T) {
	// the else_if reads an undefined variable, which would fail if evaluated
	out := renderSource(t, "{% if (true) %}ok{% else_if ($missing) %}no{% end_if %}", nil)
	if out != "ok" {
		t.Fatalf("expected %q, got %q", "ok", out)
	}
}

func TestConditionErrors(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{"{% end_if %}", "end_if used without if"},
		{"{% else %}", "else used without if"},
		{"{% else_if (true) %}", "else_if used without if"},
		{"{% if (true) %}a{% else %}b{% else_if (true) %}c{% end_if %}", "else_if used after else"},
		{"{% if (true) %}a{% else %}b{% else %}c{% end_if %}", "more than one else"},
		{"{% if (true) %}\na", "missing end_if"},
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
