package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"

	"polyphon.dev/internal/audio"
)

// MalgoEngine drives playback through miniaudio. Each scheduled clip gets its
// own malgo device configured for the clip's native format, so clips of mixed
// sample rates and bit depths can play side by side.
type MalgoEngine struct {
	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	running bool
	closed  bool
	volume  float32
}

// NewMalgoEngine creates a stopped malgo engine. Call Start before playing.
func NewMalgoEngine(opts Options) *MalgoEngine {
	opts = opts.withDefaults()
	slog.Debug("creating malgo engine", "volume", opts.Volume)
	return &MalgoEngine{volume: opts.Volume}
}

// Start initializes the malgo context if needed and marks the engine running.
func (e *MalgoEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.ctx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
			slog.Debug("malgo internal", "message", message)
		})
		if err != nil {
			slog.Error("failed to initialize malgo context", "error", err)
			return fmt.Errorf("failed to initialize audio context: %w", err)
		}
		e.ctx = ctx
	}
	e.running = true
	slog.Debug("malgo engine started")
	return nil
}

// Stop marks the engine as not running. Channels already playing are halted
// by the pool, not by the engine.
func (e *MalgoEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.running = false
	slog.Debug("malgo engine stopped")
	return nil
}

// Reset tears down and rebuilds the malgo context, leaving the engine running.
func (e *MalgoEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.ctx != nil {
		if err := e.ctx.Uninit(); err != nil {
			slog.Error("failed to uninitialize malgo context during reset", "error", err)
		}
		e.ctx.Free()
		e.ctx = nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo internal", "message", message)
	})
	if err != nil {
		e.running = false
		slog.Error("failed to reinitialize malgo context", "error", err)
		return fmt.Errorf("failed to reinitialize audio context: %w", err)
	}
	e.ctx = ctx
	e.running = true
	slog.Info("malgo engine reset completed")
	return nil
}

// Running reports whether the engine can currently produce sound.
func (e *MalgoEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && !e.closed
}

// Close releases the malgo context.
func (e *MalgoEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.running = false
	if e.ctx != nil {
		if err := e.ctx.Uninit(); err != nil {
			slog.Error("failed to uninitialize malgo context", "error", err)
			e.ctx.Free()
			e.ctx = nil
			return err
		}
		e.ctx.Free()
		e.ctx = nil
	}
	slog.Debug("malgo engine closed")
	return nil
}

// NewChannel attaches a new playback lane.
func (e *MalgoEngine) NewChannel() (Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	return &malgoChannel{engine: e}, nil
}

// malgoChannel is one playback lane. It holds at most one live device; the
// pool guarantees Play is never called while a previous Play is still active.
type malgoChannel struct {
	engine *MalgoEngine

	mu     sync.Mutex
	device *malgo.Device
}

// claim takes exclusive ownership of the device for teardown. Exactly one of
// the completion path, Stop and a failed Play start may win; the losers must
// leave the device alone. Uninit on a miniaudio device is not idempotent.
func (c *malgoChannel) claim(device *malgo.Device) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != device {
		return false
	}
	c.device = nil
	return true
}

// Play schedules the clip on a fresh device and starts output.
func (c *malgoChannel) Play(clip *audio.AudioData, onComplete func()) error {
	c.engine.mu.Lock()
	if c.engine.closed {
		c.engine.mu.Unlock()
		return ErrEngineClosed
	}
	if !c.engine.running || c.engine.ctx == nil {
		c.engine.mu.Unlock()
		return ErrEngineNotRunning
	}
	mctx := c.engine.ctx.Context
	volume := c.engine.volume
	c.engine.mu.Unlock()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = clip.Format
	deviceConfig.Playback.Channels = clip.Channels
	deviceConfig.SampleRate = clip.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	bytesPerFrame := int(clip.Channels) * audio.BytesPerSample(clip.Format)
	totalFrames := uint32(clip.FrameCount())

	var done sync.Once
	var frameOffset uint32
	var device *malgo.Device

	finish := func() {
		// Device teardown must not happen on the data callback goroutine.
		// If Stop already claimed the device, it owns the teardown and the
		// completion callback is suppressed.
		go func() {
			if !c.claim(device) {
				return
			}
			device.Uninit()
			onComplete()
		}()
	}

	onSamples := func(pOutput, _ []byte, frameCount uint32) {
		startByte := int(frameOffset) * bytesPerFrame
		if startByte >= len(clip.Samples) {
			for i := range pOutput {
				pOutput[i] = 0
			}
			done.Do(finish)
			return
		}

		requested := int(frameCount) * bytesPerFrame
		available := len(clip.Samples) - startByte
		n := requested
		if n > available {
			n = available
		}
		copy(pOutput[:n], clip.Samples[startByte:startByte+n])

		// The whole output buffer must be written; leftover garbage crackles
		for i := n; i < len(pOutput); i++ {
			pOutput[i] = 0
		}

		if volume != 1.0 {
			ApplyVolume(pOutput[:n], clip.Format, volume)
		}

		frameOffset += frameCount
		if frameOffset >= totalFrames {
			done.Do(finish)
		}
	}

	device, err := malgo.InitDevice(mctx, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		slog.Error("failed to initialize playback device", "error", err)
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.mu.Unlock()

	if err := device.Start(); err != nil {
		if c.claim(device) {
			device.Uninit()
		}
		slog.Error("failed to start playback device", "error", err)
		return fmt.Errorf("failed to start playback: %w", err)
	}

	slog.Debug("malgo playback started",
		"frames", totalFrames,
		"sample_rate", clip.SampleRate,
		"channels", clip.Channels)
	return nil
}

// Stop halts the current playback, if any. The completion callback for the
// halted clip is suppressed. A completion racing in first keeps the device;
// this Stop then has nothing left to tear down.
func (c *malgoChannel) Stop() error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()

	if device != nil && c.claim(device) {
		go func() {
			device.Stop()
			device.Uninit()
		}()
		slog.Debug("malgo playback stopped")
	}
	return nil
}

// Close releases the channel's resources.
func (c *malgoChannel) Close() error {
	return c.Stop()
}
