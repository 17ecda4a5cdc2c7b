// Package cli implements the polyphon demo binary: a thin cobra front end
// over the playback manager.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"polyphon.dev/internal/config"
)

const Version = "0.3.0"

// CLI wires configuration, logging and the playback manager behind cobra.
type CLI struct {
	rootCmd          *cobra.Command
	configManager    *config.ConfigManager
	terminalDetector TerminalDetector
}

// NewCLI creates a new CLI instance
func NewCLI() *CLI {
	rootCmd := &cobra.Command{
		Use:           "polyphon",
		Short:         "Low-latency sound effect player",
		Long:          "Polyphon keeps short sound effects decoded in memory and plays them through a pool of reusable voices with minimal start latency.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("volume", "", "Playback volume (0.0 to 1.0)")
	rootCmd.PersistentFlags().String("engine", "", "Output engine (auto, malgo, oto, system_command)")
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	c := &CLI{
		rootCmd:          rootCmd,
		configManager:    config.NewConfigManager(),
		terminalDetector: &RealTerminalDetector{},
	}

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "polyphon %s\n", Version)
			return nil
		}
		return cmd.Help()
	}

	rootCmd.AddCommand(c.newPlayCommand())
	rootCmd.AddCommand(c.newDiagCommand())
	rootCmd.AddCommand(c.newHistoryCommand())

	return c
}

// Run executes the CLI with the given arguments and streams, returning the
// process exit code.
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := c.loadConfig(args)
	c.setupLogging(cfg, stderr)

	c.rootCmd.SetArgs(args[1:])
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	if err := c.rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "polyphon: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig loads configuration, honoring an early --config flag so logging
// can be set up before cobra parses anything.
func (c *CLI) loadConfig(args []string) *config.Config {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			if cfg, err := c.configManager.LoadFromFile(args[i+1]); err == nil {
				return cfg
			}
		}
	}
	return c.configManager.LoadConfig()
}

// setupLogging configures the default slog logger: rotating file log when
// enabled, plus stderr output when stderr is an interactive terminal.
func (c *CLI) setupLogging(cfg *config.Config, stderr io.Writer) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	var writers []io.Writer
	if cfg.FileLogging != nil && cfg.FileLogging.Enabled {
		writers = append(writers, &lumberjack.Logger{
			Filename:   c.configManager.GetLogFilePath(cfg),
			MaxSize:    cfg.FileLogging.MaxSizeMB,
			MaxBackups: cfg.FileLogging.MaxBackups,
			MaxAge:     cfg.FileLogging.MaxAgeDays,
			Compress:   cfg.FileLogging.Compress,
		})
	}
	if c.terminalDetector.IsTerminal(os.Stderr.Fd()) {
		writers = append(writers, stderr)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// effectiveConfig merges persistent flag overrides into the loaded config.
func (c *CLI) effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := c.loadConfigFromFlag(cmd)

	if v, _ := cmd.Flags().GetString("volume"); v != "" {
		var volume float64
		if _, err := fmt.Sscanf(v, "%f", &volume); err != nil || volume < 0.0 || volume > 1.0 {
			return nil, fmt.Errorf("invalid volume %q (must be 0.0-1.0)", v)
		}
		cfg.Volume = volume
	}
	if e, _ := cmd.Flags().GetString("engine"); e != "" {
		cfg.Engine = e
	}

	if err := c.configManager.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *CLI) loadConfigFromFlag(cmd *cobra.Command) *config.Config {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if cfg, err := c.configManager.LoadFromFile(path); err == nil {
			return cfg
		} else {
			slog.Warn("failed to load config file, using defaults", "path", path, "error", err)
		}
	}
	return c.configManager.LoadConfig()
}
