// Package sigma is a line-oriented template engine. Templates mix literal
// text with `{% ... %}` directives (extend, include, blocks, define, if,
// for and custom directives), `{{ ... }}` expressions and `{-- ... --}`
// comments, and are re-processed until nothing is left to expand.
package sigma

import (
	"path/filepath"
	"strings"

	"github.com/deicod/sigma/runtime"
)

// Version of the sigma library
const Version = "0.1.0"

// Environment holds the loader, directives, shared variables and cache
type Environment = runtime.Environment

// Config describes how an environment is built
type Config = runtime.Config

// Loader loads template sources by dot-notation name
type Loader = runtime.Loader

// DirectiveFunc is the callback of a custom directive
type DirectiveFunc = runtime.DirectiveFunc

// Limits bounds the work of one render
type Limits = runtime.Limits

// Cache stores rendered output
type Cache = runtime.Cache

// Error types

// Error represents a render error
type Error = runtime.Error

// ErrorType represents the type of error
type ErrorType = runtime.ErrorType

// NewEnvironment creates a new environment without a loader
func NewEnvironment() *Environment {
	return runtime.NewEnvironment()
}

// New creates an environment that loads templates from the given
// directories.
func New(paths ...string) *Environment {
	env := runtime.NewEnvironment()
	env.SetLoader(runtime.NewFileSystemLoader(paths...))
	return env
}

// NewFromConfig creates an environment from a configuration
func NewFromConfig(cfg *Config) (*Environment, error) {
	return runtime.NewEnvironmentFromConfig(cfg)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return runtime.DefaultConfig()
}

// RenderString renders template source with data
func RenderString(source string, data map[string]interface{}) (string, error) {
	return runtime.NewEnvironment().RenderString(source, data)
}

// RenderFile renders a template file with data. Templates it extends or
// includes are looked up next to it.
func RenderFile(filename string, data map[string]interface{}) (string, error) {
	if filename == "" {
		return "", runtime.NewError(runtime.ErrorTypeTemplateNotFound, "filename must not be empty")
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return "", err
	}

	base := filepath.Base(absPath)
	loader := runtime.NewFileSystemLoader(filepath.Dir(absPath))
	name := strings.TrimSuffix(base, "."+runtime.DefaultTemplateExtension)
	if name == base {
		ext := filepath.Ext(base)
		loader.SetExtension(ext)
		name = strings.TrimSuffix(base, ext)
	}

	env := runtime.NewEnvironment()
	env.SetLoader(loader)
	return env.Render(name, data)
}

// Error predicates

// IsTemplateNotFoundError reports whether err is a missing template
func IsTemplateNotFoundError(err error) bool {
	return runtime.IsTemplateNotFoundError(err)
}

// IsTemplateParsingError reports whether err is a structural template error
func IsTemplateParsingError(err error) bool {
	return runtime.IsTemplateParsingError(err)
}

// IsUndefinedVariableError reports whether err is an unbound variable read
func IsUndefinedVariableError(err error) bool {
	return runtime.IsUndefinedVariableError(err)
}
