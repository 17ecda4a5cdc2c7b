package voice

import "polyphon.dev/internal/engine"

// Status is the live state of a voice.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
)

// String returns the human-readable name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of a voice: which sound it is bound to and
// whether it is producing output. It is replaced wholesale on every
// transition so readers always see a consistent pair.
type State struct {
	Sound  string
	Status Status
}

// voice is a single playback slot bound to one engine channel. The channel is
// created when the voice joins the pool and lives until the pool is reset.
// All fields are guarded by the owning pool's mutex.
type voice struct {
	channel engine.Channel
	state   State

	// generation is bumped on every assignment and on every targeted stop.
	// Completion callbacks capture the generation they were scheduled under
	// and are ignored if the voice has since been reassigned, so a late
	// completion can never clear a newer playback's state.
	generation uint64
}
