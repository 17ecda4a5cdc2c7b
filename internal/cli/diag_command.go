package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"polyphon.dev/internal/audio"
	"polyphon.dev/internal/engine"
)

// newDiagCommand builds the `polyphon diag` subcommand.
func (c *CLI) newDiagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Show configuration and platform diagnostics",
		RunE:  c.runDiag,
	}
}

func (c *CLI) runDiag(cmd *cobra.Command, args []string) error {
	cfg, err := c.effectiveConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "polyphon %s\n\n", Version)

	fmt.Fprintf(out, "configuration:\n")
	fmt.Fprintf(out, "  volume:          %.2f\n", cfg.Volume)
	fmt.Fprintf(out, "  engine:          %s\n", cfg.Engine)
	fmt.Fprintf(out, "  initial voices:  %d\n", cfg.InitialVoices)
	fmt.Fprintf(out, "  voice cap:       %d\n", cfg.MaxVoices)
	fmt.Fprintf(out, "  log level:       %s\n", cfg.LogLevel)
	fmt.Fprintf(out, "  tracking:        %v\n", cfg.TrackingEnabled)

	fmt.Fprintf(out, "\nplatform:\n")
	fmt.Fprintf(out, "  wsl:             %v\n", engine.IsWSL())
	fmt.Fprintf(out, "  optimal engine:  %s\n", engine.DetectOptimalEngine())
	if cmdName := engine.PreferredSystemCommand(); cmdName != "" {
		fmt.Fprintf(out, "  system player:   %s\n", cmdName)
	} else {
		fmt.Fprintf(out, "  system player:   (none found)\n")
	}

	registry := audio.NewDefaultRegistry()
	fmt.Fprintf(out, "\nsupported formats: %s\n", strings.Join(registry.SupportedFormats(), ", "))

	fmt.Fprintf(out, "\nsound search paths:\n")
	for _, path := range c.configManager.SoundSearchPaths(cfg) {
		fmt.Fprintf(out, "  %s\n", path)
	}

	return nil
}
