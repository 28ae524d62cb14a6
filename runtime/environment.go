package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/deicod/sigma/lexer"
)

// DirectiveFunc is the callback of a custom directive. It receives the
// evaluated arguments of the call as plain Go values and returns the value
// spliced into the output in place of the tag.
type DirectiveFunc func(args ...interface{}) (interface{}, error)

// Environment holds everything renders share: the loader, the registered
// directives, the shared variables, the output cache and the limits. It is
// safe for concurrent renders; each render builds its own state.
type Environment struct {
	loader     Loader
	directives map[string]DirectiveFunc
	shared     map[string]interface{}
	cache      Cache
	limits     Limits
	logger     *slog.Logger
	delims     lexer.Delimiters
	mu         sync.RWMutex
}

// NewEnvironment creates a new environment without a loader
func NewEnvironment() *Environment {
	return &Environment{
		directives: make(map[string]DirectiveFunc),
		shared:     make(map[string]interface{}),
		limits:     DefaultLimits(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		delims:     lexer.DefaultDelimiters(),
	}
}

// NewEnvironmentFromConfig creates an environment with a file system loader,
// limits and cache built from cfg.
func NewEnvironmentFromConfig(cfg *Config) (*Environment, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loader := NewFileSystemLoader(cfg.SearchPaths...)
	loader.SetExtension(cfg.TemplateExtension)

	cache, err := cfg.NewCache()
	if err != nil {
		return nil, err
	}

	env := NewEnvironment()
	env.SetLoader(loader)
	env.SetLimits(cfg.Limits())
	if cache != nil {
		env.SetCache(cache)
	}
	return env, nil
}

// SetLoader sets the template loader
func (env *Environment) SetLoader(loader Loader) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.loader = loader
}

// Loader returns the template loader
func (env *Environment) Loader() Loader {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.loader
}

// SetCache sets the output cache. A nil cache disables caching.
func (env *Environment) SetCache(cache Cache) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.cache = cache
}

// Cache returns the output cache, or nil when caching is disabled
func (env *Environment) Cache() Cache {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.cache
}

// SetLimits sets the render limits. Zero fields fall back to the defaults.
func (env *Environment) SetLimits(limits Limits) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.limits = limits.withDefaults()
}

// Limits returns the render limits
func (env *Environment) Limits() Limits {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.limits
}

// SetLogger sets the logger render diagnostics are written to. A nil logger
// discards them.
func (env *Environment) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	env.logger = logger
}

// Logger returns the logger of the environment
func (env *Environment) Logger() *slog.Logger {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.logger
}

// RegisterDirective makes `{% name(args) %}` call fn. Built-in directive
// keywords and names that are not identifiers are rejected.
func (env *Environment) RegisterDirective(name string, fn DirectiveFunc) error {
	if lexer.IsReservedDirective(name) {
		return fmt.Errorf("directive name %q is reserved", name)
	}
	if !lexer.IsValidDirectiveName(name) {
		return fmt.Errorf("invalid directive name %q", name)
	}
	if fn == nil {
		return fmt.Errorf("directive %q has no callback", name)
	}

	env.mu.Lock()
	defer env.mu.Unlock()
	env.directives[name] = fn
	return nil
}

// GetDirective returns the callback registered under name
func (env *Environment) GetDirective(name string) (DirectiveFunc, bool) {
	env.mu.RLock()
	defer env.mu.RUnlock()
	fn, ok := env.directives[name]
	return fn, ok
}

// Directives returns the registered directive names in sorted order
func (env *Environment) Directives() []string {
	env.mu.RLock()
	defer env.mu.RUnlock()
	names := make([]string, 0, len(env.directives))
	for name := range env.directives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetSharedVariables merges vars into the variables every render sees.
// Render data takes precedence on collisions.
func (env *Environment) SetSharedVariables(vars map[string]interface{}) {
	env.mu.Lock()
	defer env.mu.Unlock()
	for name, value := range vars {
		env.shared[name] = value
	}
}

// SharedVariables returns a copy of the shared variables
func (env *Environment) SharedVariables() map[string]interface{} {
	env.mu.RLock()
	defer env.mu.RUnlock()
	out := make(map[string]interface{}, len(env.shared))
	for name, value := range env.shared {
		out[name] = value
	}
	return out
}

// Render renders the named template with data
func (env *Environment) Render(name string, data map[string]interface{}) (string, error) {
	return env.RenderContext(context.Background(), name, data)
}

// RenderContext renders the named template with data. ctx is checked
// between passes, so a cancelled render stops at the next pass boundary.
func (env *Environment) RenderContext(ctx context.Context, name string, data map[string]interface{}) (string, error) {
	name = strings.TrimPrefix(name, "./")
	r, err := env.newRender(ctx, name, data)
	if err != nil {
		return "", err
	}

	lines, err := r.template(name)
	if err != nil {
		return "", err
	}
	return env.render(r, lines, data)
}

// RenderString renders template source that does not come from the loader.
// Templates it extends or includes are still loaded through the loader.
func (env *Environment) RenderString(source string, data map[string]interface{}) (string, error) {
	r, err := env.newRender(context.Background(), stringTemplateName, data)
	if err != nil {
		return "", err
	}

	lines := r.prepareSource(stringTemplateName, source)
	if err := r.checkReferences(stringTemplateName, lines, nil); err != nil {
		return "", err
	}
	return env.render(r, lines, data)
}

// Check loads the named template and every template it extends or includes,
// and validates their tags and construct nesting without evaluating
// anything.
func (env *Environment) Check(name string) error {
	name = strings.TrimPrefix(name, "./")
	r, err := env.newRender(context.Background(), name, nil)
	if err != nil {
		return err
	}
	return r.check(name, make(map[string]bool))
}

func (env *Environment) render(r *renderState, lines []string, data map[string]interface{}) (string, error) {
	var key string
	if r.cache != nil {
		var err error
		key, err = CacheKey(joinLines(lines), r.data)
		if err != nil {
			r.logger.Warn("skipping render cache", "template", r.name, "error", err)
		} else {
			output, ok, err := r.cache.Get(key)
			if err != nil {
				return "", WrapError(err, r.name, 0, "")
			}
			if ok {
				r.logger.Debug("render cache hit", "template", r.name, "key", key)
				return output, nil
			}
			r.logger.Debug("render cache miss", "template", r.name, "key", key)
		}
	}

	start := time.Now()
	output, err := r.run(lines)
	if err != nil {
		return "", err
	}
	r.logger.Debug("rendered template",
		"template", r.name,
		"passes", r.passes,
		"loop_iterations", r.iterations,
		"duration", time.Since(start))

	if r.cache != nil && key != "" {
		if err := r.cache.Put(key, output); err != nil {
			return "", WrapError(err, r.name, 0, "")
		}
	}
	return output, nil
}

// newRender snapshots the environment into the state of one render
func (env *Environment) newRender(ctx context.Context, name string, data map[string]interface{}) (*renderState, error) {
	env.mu.RLock()
	defer env.mu.RUnlock()

	if env.loader == nil && name != stringTemplateName {
		return nil, NewTemplateNotFound(name, nil, errNoLoader)
	}

	merged := make(map[string]interface{}, len(env.shared)+len(data))
	for k, v := range env.shared {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	directives := make(map[string]DirectiveFunc, len(env.directives))
	for k, fn := range env.directives {
		directives[k] = fn
	}

	vars := NewContext(merged)
	return &renderState{
		ctx:        ctx,
		name:       name,
		data:       merged,
		vars:       vars,
		eval:       NewEvaluator(vars),
		loader:     env.loader,
		directives: directives,
		cache:      env.cache,
		limits:     env.limits,
		logger:     env.logger,
		delims:     env.delims,
		blocks:     make(map[string][]string),
		sources:    make(map[string][]string),
		verified:   make(map[string]bool),
	}, nil
}
