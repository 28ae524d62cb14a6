package sigma

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "partial.template.html", "<b>{{ $name }}</b>")
	page := writeFile(t, dir, "page.template.html", "Hi {% include 'partial' %}")
	note := writeFile(t, dir, "note.txt", "{{ upper($name) }}")

	tests := []struct {
		file     string
		expected string
	}{
		{page, "Hi <b>Ada</b>"},
		{note, "ADA"},
	}
	for _, tt := range tests {
		out, err := RenderFile(tt.file, map[string]interface{}{"name": "Ada"})
		if err != nil {
			t.Fatalf("render %s: %v", tt.file, err)
		}
		if out != tt.expected {
			t.Fatalf("expected %q, got %q", tt.expected, out)
		}
	}

	if _, err := RenderFile("", nil); !IsTemplateNotFoundError(err) {
		t.Fatalf("expected template not found error, got %v", err)
	}
	if _, err := RenderFile(filepath.Join(dir, "absent.template.html"), nil); !IsTemplateNotFoundError(err) {
		t.Fatalf("expected template not found error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, second, "home.template.html", "{% for $i in $items %}{{ $i }};{% end_for %}")

	out, err := New(first, second).Render("home", map[string]interface{}{"items": []int{1, 2}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "1;2;" {
		t.Fatalf("expected %q, got %q", "1;2;", out)
	}
}

func TestErrorPredicates(t *testing.T) {
	if _, err := RenderString("{{ $missing }}", nil); !IsUndefinedVariableError(err) {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
	if _, err := RenderString("{% end_if %}", nil); !IsTemplateParsingError(err) {
		t.Fatalf("expected template parsing error, got %v", err)
	}
	if _, err := NewEnvironment().Render("page", nil); !IsTemplateNotFoundError(err) {
		t.Fatalf("expected template not found error, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.template.html", "a")

	cfg := DefaultConfig()
	cfg.SearchPaths = []string{dir}
	env, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out, err := env.Render("a", nil); err != nil || out != "a" {
		t.Fatalf("expected %q, got %q (%v)", "a", out, err)
	}
}
