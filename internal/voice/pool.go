package voice

import (
	"fmt"
	"log/slog"
	"sync"

	"polyphon.dev/internal/audio"
	"polyphon.dev/internal/engine"
)

// Pool is the elastic set of playback voices. It starts with a fixed number
// of voices and grows lazily, one voice per saturated request, up to a hard
// cap; it never shrinks. Every operation, including each voice's state
// transitions, runs under the pool's single mutex. This is coarser than
// per-voice locking but gives scans and assignments a consistent view of the
// whole pool, and it is never held together with the sound library's lock.
type Pool struct {
	mu      sync.Mutex
	eng     engine.Engine
	voices  []*voice
	initial int
	max     int
}

// NewPool creates a pool with initial voices attached to the engine.
func NewPool(eng engine.Engine, initial, max int) (*Pool, error) {
	if initial < 1 {
		return nil, fmt.Errorf("initial voice count must be at least 1, got %d", initial)
	}
	if max < initial {
		return nil, fmt.Errorf("voice cap %d is below initial count %d", max, initial)
	}

	p := &Pool{
		eng:     eng,
		voices:  make([]*voice, 0, initial),
		initial: initial,
		max:     max,
	}
	for i := 0; i < initial; i++ {
		if err := p.growLocked(); err != nil {
			p.closeVoicesLocked()
			return nil, fmt.Errorf("failed to create initial voice %d: %w", i, err)
		}
	}

	slog.Debug("voice pool created", "initial", initial, "max", max)
	return p, nil
}

// growLocked appends one new voice attached to the engine. Caller holds p.mu
// (or the pool is not yet shared).
func (p *Pool) growLocked() error {
	channel, err := p.eng.NewChannel()
	if err != nil {
		return err
	}
	p.voices = append(p.voices, &voice{
		channel: channel,
		state:   State{Status: StatusIdle},
	})
	return nil
}

// StartSound assigns the clip to an idle voice, growing the pool if every
// voice is busy and the cap allows it. It returns (false, nil) when the pool
// is saturated; the request is meant to be dropped silently in that case.
func (p *Pool) StartSound(id string, clip *audio.AudioData) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var v *voice
	for _, candidate := range p.voices {
		if candidate.state.Status == StatusIdle {
			v = candidate
			break
		}
	}

	if v == nil {
		if len(p.voices) >= p.max {
			slog.Debug("voice pool saturated, dropping request",
				"sound", id, "voices", len(p.voices), "max", p.max)
			return false, nil
		}
		if err := p.growLocked(); err != nil {
			slog.Error("failed to grow voice pool", "sound", id, "error", err)
			return false, fmt.Errorf("failed to grow voice pool: %w", err)
		}
		v = p.voices[len(p.voices)-1]
		slog.Debug("voice pool grew", "sound", id, "voices", len(p.voices), "max", p.max)
	}

	v.generation++
	gen := v.generation
	v.state = State{Sound: id, Status: StatusPlaying}

	// The completion callback fires from the engine's goroutine; engines
	// never invoke it synchronously from Play, so taking p.mu here is safe.
	err := v.channel.Play(clip, func() {
		p.mu.Lock()
		if v.generation == gen {
			v.state = State{Status: StatusIdle}
		}
		p.mu.Unlock()
	})
	if err != nil {
		v.generation++
		v.state = State{Status: StatusIdle}
		return false, err
	}

	slog.Debug("voice assigned", "sound", id, "voices", len(p.voices))
	return true, nil
}

// IsPlaying reports whether any voice is currently bound to the sound.
func (p *Pool) IsPlaying(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, v := range p.voices {
		if v.state.Status != StatusIdle && v.state.Sound == id {
			return true
		}
	}
	return false
}

// StopAll halts every voice currently playing the sound. Voices bound to
// other sounds are untouched; a stop for a sound nothing is playing is a
// no-op.
func (p *Pool) StopAll(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stopped := 0
	for _, v := range p.voices {
		if v.state.Status == StatusIdle || v.state.Sound != id {
			continue
		}
		v.generation++
		v.state = State{Status: StatusIdle}
		if err := v.channel.Stop(); err != nil {
			slog.Error("failed to stop voice channel", "sound", id, "error", err)
		}
		stopped++
	}
	if stopped > 0 {
		slog.Debug("voices stopped", "sound", id, "count", stopped)
	}
}

// Reset discards every voice and rebuilds the initial fixed-size set against
// the given engine. Used only on engine-failure recovery.
func (p *Pool) Reset(eng engine.Engine) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeVoicesLocked()
	p.eng = eng
	p.voices = make([]*voice, 0, p.initial)
	for i := 0; i < p.initial; i++ {
		if err := p.growLocked(); err != nil {
			return fmt.Errorf("failed to rebuild voice %d after reset: %w", i, err)
		}
	}

	slog.Info("voice pool reset", "voices", len(p.voices))
	return nil
}

// Close releases every voice's channel.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeVoicesLocked()
	p.voices = nil
}

func (p *Pool) closeVoicesLocked() {
	for _, v := range p.voices {
		v.generation++
		v.state = State{Status: StatusIdle}
		if err := v.channel.Close(); err != nil {
			slog.Error("failed to close voice channel", "error", err)
		}
	}
}

// Size returns the current number of voices.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.voices)
}

// Cap returns the hard voice limit.
func (p *Pool) Cap() int {
	return p.max
}

// Snapshot returns a consistent copy of every voice's state, in pool order.
func (p *Pool) Snapshot() []State {
	p.mu.Lock()
	defer p.mu.Unlock()

	states := make([]State, len(p.voices))
	for i, v := range p.voices {
		states[i] = v.state
	}
	return states
}

// Counts returns the number of idle and playing voices in one consistent read.
func (p *Pool) Counts() (idle, playing int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, v := range p.voices {
		if v.state.Status == StatusIdle {
			idle++
		} else {
			playing++
		}
	}
	return idle, playing
}
