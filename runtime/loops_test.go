package runtime

import (
	"strings"
	"testing"
)

func TestLoops(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "inline sequence",
			source:   "{% for $x in [1, 2, 3] %}{{ $x }},{% end_for %}",
			expected: "1,2,3,",
		},
		{
			name:     "numeric domain",
			source:   "{% for $i in 3 %}[{{ $i }}]{% end_for %}",
			expected: "[1][2][3]",
		},
		{
			name:     "string domain",
			source:   "{% for $c in 'abc' %}{{ $c }}-{% end_for %}",
			expected: "a-b-c-",
		},
		{
			name:     "numeric string domain",
			source:   "{% for $x in $n %}{{ $x }},{% end_for %}",
			data:     map[string]interface{}{"n": "3"},
			expected: "1,2,3,",
		},
		{
			name:     "numeric string literal",
			source:   "{% for $x in '12' %}.{% end_for %}",
			expected: "............",
		},
		{
			name:     "zero iterations",
			source:   "a{% for $i in 0 %}x{% end_for %}b",
			expected: "ab",
		},
		{
			name:     "break guard",
			source:   "{% for $x in [1, 2, 3] %}{% break ($x == 2) %}{{ $x }}{% end_for %}",
			expected: "1",
		},
		{
			name:     "continue guard",
			source:   "{% for $x in [1, 2, 3, 4] %}{% continue ($x % 2 == 0) %}{{ $x }}{% end_for %}",
			expected: "13",
		},
		{
			name:     "map values",
			source:   "{% for $v in $m %}{{ $v }}{% end_for %}",
			data:     map[string]interface{}{"m": map[string]interface{}{"b": 2, "a": 1}},
			expected: "12",
		},
		{
			name:     "literal text around inline loop",
			source:   "<p>{% for $i in 2 %}{{ $i }}{% end_for %}</p>",
			expected: "<p>12</p>",
		},
		{
			name:     "multi-line loop",
			source:   "<ul>\n{% for $x in $items %}\n<li>{{ $x }}</li>\n{% end_for %}\n</ul>",
			data:     map[string]interface{}{"items": []string{"a", "b"}},
			expected: "<ul>\n<li>a</li>\n<li>b</li>\n</ul>",
		},
		{
			name:     "condition in loop body",
			source:   "{% for $x in 4 %}{% if ($x > 2) %}{{ $x }}{% end_if %}{% end_for %}",
			expected: "34",
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

func TestNestedLoopsSeeOuterBinding(t *testing.T) {
	source := `{% for $i in [1, 2] %}
{% for $j in [1, 2] %}
{{ $i }}-{{ $j }}
{% end_for %}
{% end_for %}`

	out := renderSource(t, source, nil)
	expected := "1-1\n1-2\n2-1\n2-2"
	if out != expected {
		t.Fatalf("expected %q, got %q", expected, out)
	}
}

func TestNestedInlineLoops(t *testing.T) {
	source := "{% for $i in 2 %}({% for $j in 3 %}{{ $i * $j }}{% end_for %}){% end_for %}"
	expected := "(123)(246)"
	if got := renderSource(t, source, nil); got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestBreakOnlyStopsItsOwnLoop(t *testing.T) {
	source := "{% for $i in 2 %}{% for $j in 5 %}{% break ($j > $i) %}{{ $j }}{% end_for %};{% end_for %}"
	expected := "1;12;"
	if got := renderSource(t, source, nil); got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestLoopBodySeesIncludedContent(t *testing.T) {
	env := newTestEnvironment(map[string]string{
		"item": "<li>{{ $item }}</li>",
		"list": "{% for $item in ['x', 'y'] %}{% include 'item' %}{% end_for %}",
	})
	out, err := env.Render("list", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<li>x</li><li>y</li>" {
		t.Fatalf("expected %q, got %q", "<li>x</li><li>y</li>", out)
	}
}

func TestLoopErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		data    map[string]interface{}
		check   func(error) bool
		message string
	}{
		{
			name:    "end_for without for",
			source:  "a\n{% end_for %}",
			check:   IsTemplateParsingError,
			message: "end_for used without for",
		},
		{
			name:    "missing end_for",
			source:  "{% for $i in 3 %}\n{{ $i }}",
			check:   IsTemplateParsingError,
			message: "missing end_for",
		},
		{
			name:    "break outside loop",
			source:  "{% break ($x) %}",
			check:   IsTemplateParsingError,
			message: "break used outside of a loop",
		},
		{
			name:    "not iterable",
			source:  "{% for $x in $flag %}{% end_for %}",
			data:    map[string]interface{}{"flag": true},
			check:   IsInvalidExpressionError,
			message: "cannot iterate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnvironment().RenderString(tt.source, tt.data)
			if !tt.check(err) {
				t.Fatalf("unexpected error type: %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected error containing %q, got %v", tt.message, err)
			}
		})
	}
}
