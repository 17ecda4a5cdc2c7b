package manager

import (
	"log/slog"
	"sync"
	"time"

	"polyphon.dev/internal/voice"
)

// DefaultDiagnosticsInterval is the sampling period when none is given.
const DefaultDiagnosticsInterval = 5 * time.Second

// diagnostics runs the periodic read-only sampler over the pool and library.
type diagnostics struct {
	mu   sync.Mutex
	done chan struct{}
}

// StartDiagnostics begins periodic sampling of voice and library state to the
// log. Idempotent: a second call while running does nothing.
func (m *Manager) StartDiagnostics(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultDiagnosticsInterval
	}

	m.diag.mu.Lock()
	defer m.diag.mu.Unlock()

	if m.diag.done != nil {
		slog.Debug("diagnostics already running")
		return
	}
	done := make(chan struct{})
	m.diag.done = done

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.sampleDiagnostics()
			}
		}
	}()

	slog.Debug("diagnostics started", "interval", interval)
}

// StopDiagnostics halts the sampler. No-op when it is not running.
func (m *Manager) StopDiagnostics() {
	m.diag.mu.Lock()
	defer m.diag.mu.Unlock()

	if m.diag.done == nil {
		return
	}
	close(m.diag.done)
	m.diag.done = nil
	slog.Debug("diagnostics stopped")
}

// sampleDiagnostics takes one consistent snapshot and logs it. The pool lock
// is held only for the duration of the snapshot.
func (m *Manager) sampleDiagnostics() {
	states := m.pool.Snapshot()

	playing := make([]string, 0, len(states))
	idle := 0
	for _, s := range states {
		if s.Status == voice.StatusIdle {
			idle++
			continue
		}
		playing = append(playing, s.Sound)
	}

	slog.Info("playback diagnostics",
		"loaded_sounds", m.lib.Len(),
		"voices", len(states),
		"voice_cap", m.pool.Cap(),
		"idle_voices", idle,
		"playing", playing)
}
