package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deicod/sigma/directives"
	"github.com/deicod/sigma/runtime"
)

// Configuration keys. Each is also read from SIGMA_<KEY> and from the
// --config file.
const (
	keySearchPaths       = "search_paths"
	keyTemplateExtension = "template_extension"
	keyMaxPasses         = "max_passes"
	keyMaxLoopIterations = "max_loop_iterations"
	keyMaxOutputSize     = "max_output_size"
	keyCacheDir          = "cache_dir"
	keyCacheTTL          = "cache_ttl"
	keyCacheMaxSize      = "cache_max_size"
	keyLogLevel          = "log_level"
)

type cli struct {
	v          *viper.Viper
	configFile string
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{v: newViper()}

	root := &cobra.Command{
		Use:           "sigma",
		Short:         "Render line-oriented sigma templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "YAML config file")
	flags.StringSlice("views", nil, "template directories, searched in order")
	flags.String("extension", "", "template file extension (default \"template.html\")")
	flags.Int("max-passes", 0, "maximum rendering passes")
	flags.Int("max-loop-iterations", 0, "maximum loop iterations per render")
	flags.String("cache-dir", "", "directory for the compressed render cache")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	bind := map[string]string{
		keySearchPaths:       "views",
		keyTemplateExtension: "extension",
		keyMaxPasses:         "max-passes",
		keyMaxLoopIterations: "max-loop-iterations",
		keyCacheDir:          "cache-dir",
		keyLogLevel:          "log-level",
	}
	for key, flag := range bind {
		// only fails for an unknown flag
		_ = c.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newRenderCommand(c), newPrecompileCommand(c), newCheckCommand(c))
	return root
}

func newViper() *viper.Viper {
	defaults := runtime.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("SIGMA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keySearchPaths, defaults.SearchPaths)
	v.SetDefault(keyTemplateExtension, defaults.TemplateExtension)
	v.SetDefault(keyMaxPasses, defaults.MaxPasses)
	v.SetDefault(keyMaxLoopIterations, defaults.MaxLoopIterations)
	v.SetDefault(keyMaxOutputSize, defaults.MaxOutputSize)
	v.SetDefault(keyCacheDir, defaults.CacheDir)
	v.SetDefault(keyCacheTTL, defaults.CacheTTL)
	v.SetDefault(keyCacheMaxSize, defaults.CacheMaxSize)
	v.SetDefault(keyLogLevel, defaults.LogLevel)
	return v
}

// init reads the config file and sets up logging
func (c *cli) init() error {
	if c.configFile != "" {
		c.v.SetConfigFile(c.configFile)
		c.v.SetConfigType("yaml")
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", c.configFile, err)
		}
	}

	level, err := runtime.ParseLogLevel(c.v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// config builds the runtime configuration from defaults, the config file,
// the environment and flags, in increasing precedence.
func (c *cli) config() *runtime.Config {
	return &runtime.Config{
		TemplateExtension: strings.TrimPrefix(c.v.GetString(keyTemplateExtension), "."),
		SearchPaths:       searchPaths(c.v.GetStringSlice(keySearchPaths)),
		MaxPasses:         c.v.GetInt(keyMaxPasses),
		MaxLoopIterations: c.v.GetInt(keyMaxLoopIterations),
		MaxOutputSize:     c.v.GetInt(keyMaxOutputSize),
		CacheDir:          c.v.GetString(keyCacheDir),
		CacheTTL:          c.v.GetDuration(keyCacheTTL),
		CacheMaxSize:      c.v.GetInt(keyCacheMaxSize),
		LogLevel:          c.v.GetString(keyLogLevel),
	}
}

// environment builds an environment with the stock directives registered
func (c *cli) environment() (*runtime.Environment, error) {
	env, err := runtime.NewEnvironmentFromConfig(c.config())
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		env.SetLogger(c.logger)
	}
	if err := directives.Register(env); err != nil {
		return nil, err
	}
	return env, nil
}

// searchPaths splits entries given as a PATH-style list
func searchPaths(values []string) []string {
	var paths []string
	for _, value := range values {
		for _, p := range strings.Split(value, string(os.PathListSeparator)) {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	}
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}
