// Package main provides the propane binary entry point. Propane is a
// catalog of reusable CFEngine promise bodies with a composition and
// validation engine: it loads fragment definitions, resolves their
// inheritance graphs and emits deterministic CFEngine body syntax.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/propanelib/propane/catalog"
	"github.com/propanelib/propane/compose"
	"github.com/propanelib/propane/config"
	"github.com/propanelib/propane/emit"
	"github.com/propanelib/propane/loader"
	"github.com/propanelib/propane/validate"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "propane"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// rootOptions are the persistent flags shared by all subcommands.
type rootOptions struct {
	configPath string
	paths      []string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Promise-body catalog and composition engine",
		Long: `Propane manages a catalog of reusable CFEngine promise bodies.

Fragment definitions are YAML files holding named, versioned,
parameterized attribute blocks which may inherit from one another.
Propane validates parameters, resolves the inheritance graph and emits
the composed body in CFEngine syntax.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringArrayVar(&opts.paths, "catalog", nil, "Definition file glob (repeatable, overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(resolveCmd(opts))
	cmd.AddCommand(listCmd(opts))
	cmd.AddCommand(lintCmd(opts))
	cmd.AddCommand(watchCmd(opts))
	cmd.AddCommand(serveCmd(opts))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadConfig builds the effective configuration from the defaults, the
// optional config file and the --catalog overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		fileCfg, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	// Flags overlay the file config the same way the file overlays the
	// defaults.
	cfg.Merge(&config.Config{Catalog: config.CatalogConfig{Paths: opts.paths}})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadCatalog loads all configured definition files into a fresh
// catalog.
func loadCatalog(opts *rootOptions) (*catalog.Catalog, *config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	cat := catalog.New()
	n, err := loader.LoadGlobs(cfg.Catalog.Paths, cat)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("Catalog loaded", "fragments", n, "paths", cfg.Catalog.Paths)

	return cat, cfg, nil
}

// Exit codes per error kind, so scripts can tell failure modes apart
// without parsing stderr.
const (
	exitFailure              = 1
	exitDuplicateFragment    = 3
	exitNotFound             = 4
	exitMissingParameter     = 5
	exitTypeMismatch         = 6
	exitConstraintViolation  = 7
	exitUnknownParameter     = 8
	exitCyclicDependency     = 9
	exitUnresolvedReference  = 10
	exitUnsupportedValueType = 11
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, catalog.ErrDuplicateFragment):
		return exitDuplicateFragment
	case errors.Is(err, catalog.ErrNotFound):
		return exitNotFound
	case errors.Is(err, validate.ErrMissingParameter):
		return exitMissingParameter
	case errors.Is(err, validate.ErrTypeMismatch):
		return exitTypeMismatch
	case errors.Is(err, validate.ErrConstraintViolation):
		return exitConstraintViolation
	case errors.Is(err, validate.ErrUnknownParameter):
		return exitUnknownParameter
	case errors.Is(err, compose.ErrCyclicDependency):
		return exitCyclicDependency
	case errors.Is(err, compose.ErrUnresolvedReference):
		return exitUnresolvedReference
	case errors.Is(err, emit.ErrUnsupportedValueType):
		return exitUnsupportedValueType
	default:
		return exitFailure
	}
}
