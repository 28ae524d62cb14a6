package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config contains the options an Environment can be built from
type Config struct {
	// TemplateExtension is the file suffix of templates, without the leading dot
	TemplateExtension string
	// SearchPaths are the directories templates are loaded from, in order
	SearchPaths []string
	// MaxPasses caps the rounds of the fixed-point driver
	MaxPasses int
	// MaxLoopIterations caps the loop iterations unrolled in one render
	MaxLoopIterations int
	// MaxOutputSize caps the rendered output in bytes. 0 means no limit.
	MaxOutputSize int
	// CacheDir enables the zstd file cache in that directory
	CacheDir string
	// CacheTTL is the time-to-live of in-memory cache entries. 0 means no expiration.
	CacheTTL time.Duration
	// CacheMaxSize is the number of renders kept in memory when no CacheDir is
	// set. 0 disables the memory cache.
	CacheMaxSize int
	// LogLevel controls the verbosity of logging (debug, info, warn, error)
	LogLevel string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TemplateExtension: DefaultTemplateExtension,
		SearchPaths:       []string{"."},
		MaxPasses:         DefaultMaxPasses,
		MaxLoopIterations: DefaultMaxLoopIterations,
		LogLevel:          "info",
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// SIGMA_TEMPLATE_EXTENSION
	if val := os.Getenv("SIGMA_TEMPLATE_EXTENSION"); val != "" {
		config.TemplateExtension = strings.TrimPrefix(val, ".")
	}

	// SIGMA_SEARCH_PATHS, separated like PATH
	if val := os.Getenv("SIGMA_SEARCH_PATHS"); val != "" {
		config.SearchPaths = filteredSearchPaths(filepath.SplitList(val))
	}

	// SIGMA_MAX_PASSES
	if val := os.Getenv("SIGMA_MAX_PASSES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.MaxPasses = n
		}
	}

	// SIGMA_MAX_LOOP_ITERATIONS
	if val := os.Getenv("SIGMA_MAX_LOOP_ITERATIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.MaxLoopIterations = n
		}
	}

	// SIGMA_MAX_OUTPUT_SIZE
	if val := os.Getenv("SIGMA_MAX_OUTPUT_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.MaxOutputSize = n
		}
	}

	// SIGMA_CACHE_DIR
	if val := os.Getenv("SIGMA_CACHE_DIR"); val != "" {
		config.CacheDir = val
	}

	// SIGMA_CACHE_TTL
	if val := os.Getenv("SIGMA_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	// SIGMA_CACHE_MAX_SIZE
	if val := os.Getenv("SIGMA_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	// SIGMA_LOG_LEVEL
	if val := os.Getenv("SIGMA_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	return config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxPasses < 0 {
		return errors.New("max passes cannot be negative")
	}
	if c.MaxLoopIterations < 0 {
		return errors.New("max loop iterations cannot be negative")
	}
	if c.MaxOutputSize < 0 {
		return errors.New("max output size cannot be negative")
	}
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Limits returns the render limits the configuration describes
func (c *Config) Limits() Limits {
	return Limits{
		MaxPasses:         c.MaxPasses,
		MaxLoopIterations: c.MaxLoopIterations,
		MaxOutputSize:     c.MaxOutputSize,
	}.withDefaults()
}

// NewCache builds the cache the configuration asks for. It returns nil when
// caching is disabled.
func (c *Config) NewCache() (Cache, error) {
	switch {
	case c.CacheDir != "":
		return NewFileCache(c.CacheDir)
	case c.CacheMaxSize > 0:
		return NewMemoryCache(c.CacheTTL, c.CacheMaxSize), nil
	}
	return nil, nil
}

// ParseLogLevel converts a level name to a slog level. An empty name is info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}
