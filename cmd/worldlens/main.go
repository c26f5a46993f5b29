package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/jward/worldlens/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagConfig   string
	flagDB       string
	flagFormat   string
	flagLogLevel string
	flagSnapshot int64
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Loaded by the root command before any subcommand runs.
var (
	projectCfg  *config.ProjectConfig
	projectRoot string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "worldlens",
	Short:         "Semantic tooling for Urd world files",
	Long:          "Worldlens compiles Urd world files with the external compiler and answers editor queries against the compiled facts.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadProject(cmd)
	},
	// No Run, prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: worldlens.yaml in the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "snapshot database path (overrides the config)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides the config)")
	rootCmd.PersistentFlags().Int64Var(&flagSnapshot, "snapshot", 0, "query an exported snapshot instead of compiling")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(hoverCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(definitionCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadProject reads the config and installs the logger in the command's
// context.
func loadProject(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	projectRoot = findRepoRoot(cwd)

	path := flagConfig
	if path == "" {
		path = filepath.Join(projectRoot, config.FileName)
	}
	cfg, err := config.LoadProjectConfig(path)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	projectCfg = cfg

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(slogctx.NewCtx(ctx, logger))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// findRepoRoot walks up from startDir looking for a .git directory or a
// worldlens.yaml. Returns startDir if neither is found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
			return dir
		}
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the config.
func resolveDBPath() string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(projectRoot, flagDB)
	}
	return projectCfg.DatabasePath(projectRoot)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the worldlens version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return outputResult(CLIResult{Command: "version", Results: version})
	},
}
