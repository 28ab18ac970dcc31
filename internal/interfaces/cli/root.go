// Package cli implements the anbase command line: one command per curation
// stage, a run command chaining them, and configuration helpers.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Verbose    bool
	NoColor    bool
	Watch      bool
}

// CLIContext carries the loaded configuration and logger through the command
// tree.
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Logger     logging.Logger
	NoColor    bool
}

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "anbase",
		Short: "anbase curates unbound conformations of antibody-antigen complexes",
		Long: "anbase reads a SAbDab summary table, finds unbound structures of both sides of\n" +
			"every antibody-antigen complex, superposes them onto the bound complex and picks\n" +
			"the best pairing per complex. Stages can run one at a time or all at once.",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./anbase.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.BoolVar(&opts.Watch, "watch-config", false, "apply log level changes from the config file while running")

	cmd.AddCommand(
		newCollectCmd(),
		newProcessCmd(),
		newDuplicatesCmd(),
		newSummaryCmd(),
		newConstraintsCmd(),
		newRunCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun loads the configuration and the logger and stores them in
// the command context. The version command needs neither.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	if cmd.Name() == "version" {
		return nil
	}
	if opts.NoColor {
		color.NoColor = true
	}

	path := findConfig(opts.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logger = logger.Named("anbase")
	logging.SetDefault(logger)

	if opts.Watch && path != "" {
		watchLogLevel(path, logger)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &CLIContext{
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
		NoColor:    opts.NoColor,
	}))
	return nil
}

// findConfig returns explicit when set, otherwise the first existing default
// location, otherwise "" (environment and defaults only).
func findConfig(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidates := []string{"./anbase.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".anbase", "config.yaml"))
	}
	candidates = append(candidates, "/etc/anbase/config.yaml")
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// watchLogLevel applies log.level edits of the config file to logger. Other
// settings are fixed for the lifetime of a run.
func watchLogLevel(path string, logger logging.Logger) {
	setter, ok := logger.(logging.LevelSetter)
	if !ok {
		return
	}
	err := config.Watch(path, func(cfg *config.Config) {
		if err := setter.SetLevel(cfg.Log.Level); err != nil {
			logger.Warn("Ignoring log level change", logging.Err(err))
			return
		}
		logger.Info("Log level changed", logging.String("level", cfg.Log.Level))
	}, func(err error) {
		logger.Warn("Ignoring invalid config change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("Config watch disabled", logging.Err(err))
	}
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.CodeInvalidParam, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.CodeInvalidParam, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}

//Personal.AI order the ending
