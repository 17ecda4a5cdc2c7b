package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"polyphon.dev/internal/manager"
	"polyphon.dev/internal/resolver"
	"polyphon.dev/internal/tracking"
)

// newPlayCommand builds the `polyphon play` subcommand.
func (c *CLI) newPlayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <sound-or-file>...",
		Short: "Load sounds and play them",
		Long:  "Loads each argument (a bare sound name resolved against the sound paths, or a file path) and plays it. The command waits until every voice has gone idle.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runPlay,
	}
	cmd.Flags().Bool("overlap", true, "Allow the same sound to play on multiple voices")
	cmd.Flags().String("scope", "", "Subdirectory scope for sound resolution")
	cmd.Flags().Duration("timeout", 30*time.Second, "Maximum time to wait for playback to finish")
	return cmd
}

func (c *CLI) runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := c.effectiveConfig(cmd)
	if err != nil {
		return err
	}
	overlap, _ := cmd.Flags().GetBool("overlap")
	scope, _ := cmd.Flags().GetString("scope")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	locator := resolver.NewDirLocator(nil, c.configManager.SoundSearchPaths(cfg), nil)

	var recorder *tracking.Recorder
	if cfg.TrackingEnabled {
		recorder, err = tracking.NewRecorder(c.configManager.GetTrackingDBPath())
		if err != nil {
			slog.Warn("playback journal unavailable", "error", err)
		}
	}

	stderr := cmd.ErrOrStderr()
	mgr, err := manager.New(manager.Options{
		InitialVoices: cfg.InitialVoices,
		MaxVoices:     cfg.MaxVoices,
		Engine:        cfg.Engine,
		Volume:        cfg.Volume,
		Locator:       locator,
		Recorder:      recorder,
		OnError: func(err error) {
			fmt.Fprintf(stderr, "polyphon: %v\n", err)
		},
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	ids := make([]string, 0, len(args))
	for _, ref := range args {
		id := soundID(ref)
		ids = append(ids, id)
		mgr.Load(ref, id, scope)
	}

	deadline := time.Now().Add(timeout)
	waitForLoads(mgr, len(uniqueStrings(ids)), deadline)

	for _, id := range ids {
		mgr.Play(id, overlap)
	}

	waitForIdle(mgr, deadline)
	return nil
}

// soundID derives a logical identifier from a source reference.
func soundID(ref string) string {
	base := filepath.Base(ref)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// waitForLoads polls until the expected number of sounds is loaded or the
// deadline passes. Load failures are reported through the error sink, so a
// short wait with a deadline is all that is needed here.
func waitForLoads(mgr *manager.Manager, expected int, deadline time.Time) {
	for time.Now().Before(deadline) {
		if mgr.Stats().LoadedSounds >= expected {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// waitForIdle polls until no voice is playing or the deadline passes.
func waitForIdle(mgr *manager.Manager, deadline time.Time) {
	// Grace period for the asynchronous dispatch to reach the pool
	time.Sleep(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if mgr.Stats().PlayingVoices == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	slog.Warn("timed out waiting for playback to finish")
}
