package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"polyphon.dev/internal/audio"
)

// OtoEngine drives playback through an oto/v3 context. oto allows a single
// context per process with one fixed output format, so this engine only
// accepts 16-bit clips matching its configured sample rate and channel count.
// Clips in any other format are rejected with ErrFormatMismatch.
type OtoEngine struct {
	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
	running    bool
	closed     bool
	volume     float32
}

// NewOtoEngine creates a stopped oto engine with a fixed output format.
func NewOtoEngine(opts Options) *OtoEngine {
	opts = opts.withDefaults()
	slog.Debug("creating oto engine",
		"sample_rate", opts.SampleRate,
		"channels", opts.Channels,
		"volume", opts.Volume)
	return &OtoEngine{
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
		volume:     opts.Volume,
	}
}

// Start initializes the oto context on first use and marks the engine running.
func (e *OtoEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

// startLocked does the Start work. Caller holds e.mu.
func (e *OtoEngine) startLocked() error {
	if e.closed {
		return ErrEngineClosed
	}
	if e.ctx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   e.sampleRate,
			ChannelCount: e.channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			slog.Error("failed to initialize oto context", "error", err)
			return fmt.Errorf("failed to initialize audio context: %w", err)
		}
		<-ready
		e.ctx = ctx
	}
	e.running = true
	slog.Debug("oto engine started")
	return nil
}

// Stop marks the engine as not running.
func (e *OtoEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.running = false
	slog.Debug("oto engine stopped")
	return nil
}

// Reset marks the engine running again. The oto context itself cannot be torn
// down and rebuilt within one process, so the existing context is kept. The
// whole transition happens under the lock, so a concurrent Close can never
// leave a closed engine marked running.
func (e *OtoEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.startLocked(); err != nil {
		return err
	}
	slog.Info("oto engine reset completed")
	return nil
}

// Running reports whether the engine can currently produce sound.
func (e *OtoEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && !e.closed
}

// Close marks the engine closed. The oto context has no teardown API.
func (e *OtoEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.running = false
	slog.Debug("oto engine closed")
	return nil
}

// NewChannel attaches a new playback lane.
func (e *OtoEngine) NewChannel() (Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	return &otoChannel{engine: e}, nil
}

// otoChannel is one playback lane backed by a per-clip oto player.
type otoChannel struct {
	engine *OtoEngine

	mu      sync.Mutex
	player  *oto.Player
	stopped bool
}

// Play starts a new oto player over the clip and polls it for completion.
func (c *otoChannel) Play(clip *audio.AudioData, onComplete func()) error {
	c.engine.mu.Lock()
	if c.engine.closed {
		c.engine.mu.Unlock()
		return ErrEngineClosed
	}
	if !c.engine.running || c.engine.ctx == nil {
		c.engine.mu.Unlock()
		return ErrEngineNotRunning
	}
	ctx := c.engine.ctx
	volume := c.engine.volume
	sampleRate := c.engine.sampleRate
	channels := c.engine.channels
	c.engine.mu.Unlock()

	if clip.Format != malgo.FormatS16 ||
		int(clip.SampleRate) != sampleRate ||
		int(clip.Channels) != channels {
		slog.Warn("clip format rejected by oto engine",
			"clip_format", clip.Format,
			"clip_sample_rate", clip.SampleRate,
			"clip_channels", clip.Channels,
			"engine_sample_rate", sampleRate,
			"engine_channels", channels)
		return ErrFormatMismatch
	}

	samples := scaledCopy(clip.Samples, clip.Format, volume)
	player := ctx.NewPlayer(bytes.NewReader(samples))

	c.mu.Lock()
	c.player = player
	c.stopped = false
	c.mu.Unlock()

	player.Play()
	slog.Debug("oto playback started", "bytes", len(samples))

	go func() {
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		c.mu.Lock()
		stopped := c.stopped
		if c.player == player {
			c.player = nil
		}
		c.mu.Unlock()
		player.Close()
		if !stopped {
			onComplete()
		}
	}()

	return nil
}

// Stop halts the current playback, suppressing its completion callback.
func (c *otoChannel) Stop() error {
	c.mu.Lock()
	player := c.player
	c.player = nil
	c.stopped = true
	c.mu.Unlock()

	if player != nil {
		player.Pause()
		slog.Debug("oto playback stopped")
	}
	return nil
}

// Close releases the channel's resources.
func (c *otoChannel) Close() error {
	return c.Stop()
}
