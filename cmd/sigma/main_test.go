package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseData(t *testing.T) {
	data, err := parseData([]byte(`{"n": 3, "name": "x"}`), ".JSON")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data["n"] != json.Number("3") || data["name"] != "x" {
		t.Fatalf("unexpected json data %#v", data)
	}

	data, err = parseData([]byte("n: 3\nlist: [a, b]\nuser:\n  name: Ada\n"), ".yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data["n"] != 3 {
		t.Fatalf("expected integer 3, got %#v", data["n"])
	}
	if !reflect.DeepEqual(data["list"], []interface{}{"a", "b"}) {
		t.Fatalf("unexpected list %#v", data["list"])
	}
	if user, ok := data["user"].(map[string]interface{}); !ok || user["name"] != "Ada" {
		t.Fatalf("unexpected user %#v", data["user"])
	}

	if data, err := parseData([]byte("  \n"), ".json"); err != nil || len(data) != 0 {
		t.Fatalf("expected empty data, got %#v (%v)", data, err)
	}
	if _, err := parseData([]byte("{"), ".json"); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestApplySet(t *testing.T) {
	data := map[string]interface{}{"user": "replaced"}
	sets := []string{
		"user.name=Ada",
		"user.age=36",
		"admin=true",
		"ratio=0.5",
		"greeting=hello world",
		"list=[1, 2]",
		"empty=",
	}
	for _, set := range sets {
		if err := applySet(data, set); err != nil {
			t.Fatalf("applySet(%q): %v", set, err)
		}
	}

	expected := map[string]interface{}{
		"user":     map[string]interface{}{"name": "Ada", "age": 36},
		"admin":    true,
		"ratio":    0.5,
		"greeting": "hello world",
		"list":     "[1, 2]",
		"empty":    "",
	}
	if !reflect.DeepEqual(data, expected) {
		t.Fatalf("expected %#v, got %#v", expected, data)
	}

	for _, bad := range []string{"novalue", "=x", " =x"} {
		if err := applySet(data, bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLoadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yml")
	if err := os.WriteFile(path, []byte("title: Home\ncount: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := loadData(path, []string{"count=2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data["title"] != "Home" || data["count"] != 2 {
		t.Fatalf("unexpected data %#v", data)
	}

	if _, err := loadData(filepath.Join(t.TempDir(), "missing.yml"), nil); err == nil {
		t.Fatal("expected error for a missing data file")
	}
}

func TestSearchPaths(t *testing.T) {
	sep := string(os.PathListSeparator)
	got := searchPaths([]string{"a" + sep + " b", "", "c"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected search paths %v", got)
	}
	if got := searchPaths(nil); !reflect.DeepEqual(got, []string{"."}) {
		t.Fatalf("expected default search path, got %v", got)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeView(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRenderCommand(t *testing.T) {
	views := t.TempDir()
	writeView(t, views, "pages/hello.template.html", "Hello {{ $user->name }} x{{ $count }}")

	stdout, _, err := execute(t, "render", "pages.hello", "--views", views, "--set", "user.name=Ada", "--set", "count=3")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if stdout != "Hello Ada x3" {
		t.Fatalf("expected %q, got %q", "Hello Ada x3", stdout)
	}

	out := filepath.Join(t.TempDir(), "hello.html")
	if _, _, err := execute(t, "render", "pages.hello", "--views", views, "--set", "user.name=Bo", "--set", "count=1", "-o", out); err != nil {
		t.Fatalf("render to file: %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "Hello Bo x1" {
		t.Fatalf("expected file output, got %q", string(data))
	}

	if _, _, err := execute(t, "render", "pages.absent", "--views", views); err == nil {
		t.Fatal("expected error for a missing template")
	}
}

func TestRenderCommandConfigFile(t *testing.T) {
	views := t.TempDir()
	writeView(t, views, "mail.txt", "{% title($name) %}")

	config := filepath.Join(t.TempDir(), "sigma.yaml")
	content := "search_paths:\n  - " + views + "\ntemplate_extension: txt\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	stdout, _, err := execute(t, "render", "mail", "--config", config, "--set", "name=ada lovelace")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if stdout != "Ada Lovelace" {
		t.Fatalf("expected %q, got %q", "Ada Lovelace", stdout)
	}

	if _, _, err := execute(t, "render", "mail", "--config", filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestCheckCommand(t *testing.T) {
	views := t.TempDir()
	writeView(t, views, "good.template.html", "{% if ($x) %}x{% end_if %}")
	writeView(t, views, "bad.template.html", "{% end_for %}")

	stdout, stderr, err := execute(t, "check", "--views", views)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 templates failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(stdout, "good: ok") {
		t.Fatalf("expected good template to pass, got %q", stdout)
	}
	if !strings.Contains(stderr, "bad: ") {
		t.Fatalf("expected bad template to be reported, got %q", stderr)
	}

	if _, _, err := execute(t, "check", "good", "--views", views); err != nil {
		t.Fatalf("expected named check to pass, got %v", err)
	}
}

func TestPrecompileCommand(t *testing.T) {
	views := t.TempDir()
	writeView(t, views, "index.template.html", "<p>{{ $site }}</p>")
	out := filepath.Join(t.TempDir(), "dist")

	stdout, _, err := execute(t, "precompile", "--views", views, "--out", out, "--set", "site=Sigma")
	if err != nil {
		t.Fatalf("precompile: %v", err)
	}
	path := filepath.Join(out, "index.html")
	if strings.TrimSpace(stdout) != path {
		t.Fatalf("expected %q to be listed, got %q", path, stdout)
	}
	if data, _ := os.ReadFile(path); string(data) != "<p>Sigma</p>" {
		t.Fatalf("unexpected output %q", string(data))
	}
}
