package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TemplateLister is a loader that can enumerate its templates
type TemplateLister interface {
	ListTemplates() ([]string, error)
}

// PrecompileDir renders every template the loader lists into outDir as
// `<path>.html`, using dot-notation names as directories. Templates that
// render to blank output are skipped, so partials that only define blocks
// produce no file.
func (env *Environment) PrecompileDir(ctx context.Context, outDir string, data map[string]interface{}) ([]string, error) {
	if strings.TrimSpace(outDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	lister, ok := env.Loader().(TemplateLister)
	if !ok {
		return nil, fmt.Errorf("loader %T cannot list templates", env.Loader())
	}
	names, err := lister.ListTemplates()
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, name := range names {
		rendered, err := env.RenderContext(ctx, name, data)
		if err != nil {
			return written, fmt.Errorf("render %s: %w", name, err)
		}

		dst := filepath.Join(outDir, filepath.FromSlash(TemplatePath(name))+".html")
		if strings.TrimSpace(rendered) == "" {
			_ = os.Remove(dst)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(dst, []byte(rendered), 0o644); err != nil {
			return written, err
		}
		env.Logger().Debug("precompiled template", "template", name, "output", dst)
		written = append(written, dst)
	}
	return written, nil
}
