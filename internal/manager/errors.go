package manager

import "errors"

// Non-fatal error taxonomy. Every failure is handled where it is detected and
// funneled to the manager's error sink; nothing propagates back to callers.
var (
	// ErrResourceNotFound means the source reference could not be located.
	ErrResourceNotFound = errors.New("sound source not found")

	// ErrUnknownSound means play or stop referenced an identifier that was
	// never successfully loaded.
	ErrUnknownSound = errors.New("unknown sound identifier")

	// ErrAudioLoadingFailed means the source was found but could not be decoded.
	ErrAudioLoadingFailed = errors.New("failed to load audio")

	// ErrEngineStopped means a play was attempted but the output engine could
	// not be kept or brought running.
	ErrEngineStopped = errors.New("output engine is stopped")
)
