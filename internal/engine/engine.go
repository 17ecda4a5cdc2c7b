package engine

import (
	"errors"

	"polyphon.dev/internal/audio"
)

// Common errors for Engine implementations
var (
	ErrEngineNotAvailable = errors.New("audio engine not available")
	ErrEngineClosed       = errors.New("audio engine is closed")
	ErrEngineNotRunning   = errors.New("audio engine is not running")
	ErrFormatMismatch     = errors.New("clip format does not match engine output format")
)

// Channel is a single playback lane on the output engine. A voice owns exactly
// one channel for its whole lifetime (until the pool is reset).
//
// Play schedules the clip, registers a one-shot completion notification and
// starts output. The completion callback fires from the engine's own
// goroutine, exactly once per Play, unless Stop preempts it. Implementations
// must never invoke it synchronously from inside Play.
type Channel interface {
	Play(clip *audio.AudioData, onComplete func()) error
	Stop() error
	Close() error
}

// Engine is the platform audio graph that voices attach to.
type Engine interface {
	// NewChannel attaches a new playback lane to the engine
	NewChannel() (Channel, error)

	// Lifecycle
	Start() error
	Stop() error
	Reset() error
	Close() error

	// Running reports whether the engine can currently produce sound
	Running() bool
}

// Options carries engine construction parameters.
type Options struct {
	Volume float32 // 0.0 to 1.0, applied at the channel level

	// Fixed output format for engines that cannot reconfigure per clip (oto)
	SampleRate int
	Channels   int
}

// withDefaults fills in zero-value options.
func (o Options) withDefaults() Options {
	if o.Volume == 0 {
		o.Volume = 1.0
	}
	if o.SampleRate == 0 {
		o.SampleRate = 44100
	}
	if o.Channels == 0 {
		o.Channels = 2
	}
	return o
}
