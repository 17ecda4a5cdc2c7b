package engine

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/youpy/go-wav"

	"polyphon.dev/internal/audio"
)

// CommandEngine plays clips by handing them to a system audio player
// (paplay, ffplay, aplay or afplay). Each playback writes the clip to a
// temporary WAV file and runs one player process; completion is the process
// exiting. Far higher start latency than malgo, but it works where shared
// audio libraries misbehave (notably WSL).
type CommandEngine struct {
	command string
	volume  float32

	mu      sync.Mutex
	running bool
	closed  bool
}

// NewCommandEngine creates a stopped engine around the given player command.
func NewCommandEngine(command string, opts Options) *CommandEngine {
	opts = opts.withDefaults()
	slog.Debug("creating system command engine", "command", command, "volume", opts.Volume)
	return &CommandEngine{command: command, volume: opts.Volume}
}

// Start verifies the player command is still available and marks the engine running.
func (e *CommandEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if _, err := exec.LookPath(e.command); err != nil {
		slog.Error("system audio command not found", "command", e.command, "error", err)
		return fmt.Errorf("%w: %s", ErrEngineNotAvailable, e.command)
	}
	e.running = true
	slog.Debug("system command engine started", "command", e.command)
	return nil
}

// Stop marks the engine as not running.
func (e *CommandEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.running = false
	return nil
}

// Reset re-checks command availability; there is no persistent state to rebuild.
func (e *CommandEngine) Reset() error {
	return e.Start()
}

// Running reports whether the engine can currently produce sound.
func (e *CommandEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && !e.closed
}

// Close marks the engine closed.
func (e *CommandEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.running = false
	return nil
}

// NewChannel attaches a new playback lane.
func (e *CommandEngine) NewChannel() (Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	return &commandChannel{engine: e}, nil
}

// commandChannel is one playback lane backed by a player process per clip.
type commandChannel struct {
	engine *CommandEngine

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
}

// Play encodes the clip to a temp WAV and spawns the player process.
func (c *commandChannel) Play(clip *audio.AudioData, onComplete func()) error {
	c.engine.mu.Lock()
	if c.engine.closed {
		c.engine.mu.Unlock()
		return ErrEngineClosed
	}
	if !c.engine.running {
		c.engine.mu.Unlock()
		return ErrEngineNotRunning
	}
	command := c.engine.command
	volume := c.engine.volume
	c.engine.mu.Unlock()

	path, err := writeTempWav(clip, volume)
	if err != nil {
		return err
	}

	cmd := exec.Command(command, playerArgs(command, path)...)
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		slog.Error("failed to start system audio command",
			"command", command, "error", err)
		return fmt.Errorf("failed to start %s: %w", command, err)
	}

	c.mu.Lock()
	c.cmd = cmd
	c.stopped = false
	c.mu.Unlock()

	slog.Debug("system command playback started", "command", command, "file", path)

	go func() {
		err := cmd.Wait()
		os.Remove(path)

		c.mu.Lock()
		stopped := c.stopped
		if c.cmd == cmd {
			c.cmd = nil
		}
		c.mu.Unlock()

		if err != nil && !stopped {
			slog.Debug("system audio command exited with error",
				"command", command, "error", err)
		}
		if !stopped {
			onComplete()
		}
	}()

	return nil
}

// Stop kills the player process, suppressing its completion callback.
func (c *commandChannel) Stop() error {
	c.mu.Lock()
	cmd := c.cmd
	c.cmd = nil
	c.stopped = true
	c.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			slog.Debug("failed to kill audio command", "error", err)
		}
	}
	return nil
}

// Close releases the channel's resources.
func (c *commandChannel) Close() error {
	return c.Stop()
}

// playerArgs builds the argument list for each supported player command.
func playerArgs(command, path string) []string {
	switch command {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
	default: // paplay, aplay, afplay all take a bare file argument
		return []string{path}
	}
}

// writeTempWav encodes the clip (with volume applied) into a temporary WAV file.
func writeTempWav(clip *audio.AudioData, volume float32) (string, error) {
	bits := audio.BytesPerSample(clip.Format) * 8
	// ApplyVolume only scales the signed integer formats
	switch clip.Format {
	case malgo.FormatS16, malgo.FormatS24, malgo.FormatS32:
	default:
		return "", ErrFormatMismatch
	}

	f, err := os.CreateTemp("", "polyphon-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp wav: %w", err)
	}

	samples := scaledCopy(clip.Samples, clip.Format, volume)
	writer := wav.NewWriter(f,
		uint32(clip.FrameCount()),
		uint16(clip.Channels),
		clip.SampleRate,
		uint16(bits))
	if _, err := writer.Write(samples); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp wav: %w", err)
	}
	return f.Name(), nil
}
