package runtime

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPrecompileDir(t *testing.T) {
	views := t.TempDir()
	writeTemplate(t, views, "home.template.html", "<h1>{{ $title }}</h1>")
	writeTemplate(t, views, "admin/users.template.html", "{% for $u in $users %}[{{ $u }}]{% end_for %}")
	writeTemplate(t, views, "shared/blocks.template.html", "{% block 'footer' %}bye{% end_block %}")

	out := filepath.Join(t.TempDir(), "dist")
	stale := filepath.Join(out, "shared", "blocks.html")
	writeTemplate(t, out, "shared/blocks.html", "stale")

	env := NewEnvironment()
	env.SetLoader(NewFileSystemLoader(views))

	written, err := env.PrecompileDir(context.Background(), out, map[string]interface{}{
		"title": "Home",
		"users": []string{"ada", "bob"},
	})
	if err != nil {
		t.Fatalf("precompile: %v", err)
	}

	expected := []string{
		filepath.Join(out, "admin", "users.html"),
		filepath.Join(out, "home.html"),
	}
	if !reflect.DeepEqual(written, expected) {
		t.Fatalf("expected %v, got %v", expected, written)
	}

	data, err := os.ReadFile(filepath.Join(out, "admin", "users.html"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[ada][bob]" {
		t.Fatalf("expected %q, got %q", "[ada][bob]", string(data))
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected blank output to remove the stale file, got %v", err)
	}
}

func TestPrecompileDirErrors(t *testing.T) {
	env := newTestEnvironment(map[string]string{"a": "a"})
	if _, err := env.PrecompileDir(context.Background(), t.TempDir(), nil); err == nil {
		t.Fatal("expected error for a loader that cannot list templates")
	}

	if _, err := env.PrecompileDir(context.Background(), " ", nil); err == nil {
		t.Fatal("expected error for an empty output directory")
	}

	views := t.TempDir()
	writeTemplate(t, views, "ok.template.html", "fine")
	writeTemplate(t, views, "zz.template.html", "{{ $missing }}")
	env = NewEnvironment()
	env.SetLoader(NewFileSystemLoader(views))

	written, err := env.PrecompileDir(context.Background(), t.TempDir(), nil)
	if !IsUndefinedVariableError(err) {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("expected the first template to be written before the failure, got %v", written)
	}
}
