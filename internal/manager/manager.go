// Package manager orchestrates sound loading and low-latency playback over
// an elastic voice pool. Load, play and stop are fire-and-forget: the real
// work runs on background goroutines and failures are delivered to an error
// sink injected at construction, never returned to the caller.
package manager

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/afero"

	"polyphon.dev/internal/audio"
	"polyphon.dev/internal/engine"
	"polyphon.dev/internal/library"
	"polyphon.dev/internal/resolver"
	"polyphon.dev/internal/tracking"
	"polyphon.dev/internal/voice"
)

// Default pool geometry.
const (
	DefaultInitialVoices = 8
	DefaultMaxVoices     = 48
)

// Options configures a Manager.
type Options struct {
	InitialVoices int     // voices created at startup (default 8)
	MaxVoices     int     // hard cap on concurrent voices (default 48)
	Engine        string  // engine type for the factory (default auto)
	Volume        float64 // playback volume 0.0-1.0 (default 1.0)

	// OnError receives every non-fatal error (resource not found, unknown
	// sound, decode failure, engine stopped). Defaults to a slog reporter.
	OnError func(error)

	// Locator resolves source references to file paths. Required unless
	// every Load call passes an absolute path.
	Locator resolver.Locator

	Fs       afero.Fs               // filesystem for reading sources (default OS)
	Registry *audio.DecoderRegistry // decoders (default WAV/MP3/AIFF)
	Factory  engine.Factory         // engine factory (default platform factory)
	Recorder *tracking.Recorder     // optional playback journal
}

// Manager owns the sound library, the voice pool and the output engine.
type Manager struct {
	lib      *library.Store
	pool     *voice.Pool
	eng      engine.Engine
	registry *audio.DecoderRegistry
	locator  resolver.Locator
	fs       afero.Fs
	onError  func(error)
	recorder *tracking.Recorder

	// engMu serializes engine lifecycle changes (restart, reset). Voice and
	// pool internals never touch the engine lifecycle directly.
	engMu sync.Mutex

	// wg tracks in-flight background requests. Used by flush in tests only;
	// callers get no handles.
	wg sync.WaitGroup

	diag diagnostics
}

// New constructs a manager, starts the output engine and allocates the
// initial voice set. Construction is the only operation that returns errors.
func New(opts Options) (*Manager, error) {
	if opts.InitialVoices == 0 {
		opts.InitialVoices = DefaultInitialVoices
	}
	if opts.MaxVoices == 0 {
		opts.MaxVoices = DefaultMaxVoices
	}
	if opts.Volume == 0 {
		opts.Volume = 1.0
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Registry == nil {
		opts.Registry = audio.NewDefaultRegistry()
	}
	if opts.Factory == nil {
		opts.Factory = engine.NewFactory()
	}
	if opts.OnError == nil {
		opts.OnError = func(err error) {
			slog.Warn("playback error", "error", err)
		}
	}

	eng, err := opts.Factory.CreateEngine(opts.Engine, engine.Options{
		Volume: float32(opts.Volume),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create output engine: %w", err)
	}
	if err := eng.Start(); err != nil {
		eng.Close()
		return nil, fmt.Errorf("failed to start output engine: %w", err)
	}

	pool, err := voice.NewPool(eng, opts.InitialVoices, opts.MaxVoices)
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("failed to create voice pool: %w", err)
	}

	m := &Manager{
		lib:      library.NewStore(),
		pool:     pool,
		eng:      eng,
		registry: opts.Registry,
		locator:  opts.Locator,
		fs:       opts.Fs,
		onError:  opts.OnError,
		recorder: opts.Recorder,
	}

	slog.Info("playback manager ready",
		"initial_voices", opts.InitialVoices,
		"max_voices", opts.MaxVoices,
		"engine", opts.Engine)
	return m, nil
}

// report funnels a non-fatal error to the sink and the journal.
func (m *Manager) report(sound string, err error) {
	m.recorder.Record(tracking.KindError, sound, err.Error())
	m.onError(err)
}

// Load resolves, decodes and registers a sound under the identifier. It
// never blocks the caller; failures surface through the error sink.
func (m *Manager) Load(sourceRef, id string, scope ...string) {
	scopeHint := ""
	if len(scope) > 0 {
		scopeHint = scope[0]
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.doLoad(sourceRef, id, scopeHint)
	}()
}

func (m *Manager) doLoad(sourceRef, id, scopeHint string) {
	path := sourceRef
	if m.locator != nil {
		resolved, err := m.locator.Resolve(sourceRef, "", scopeHint)
		if err != nil {
			m.report(id, fmt.Errorf("%w: %q: %v", ErrResourceNotFound, sourceRef, err))
			return
		}
		path = resolved
	}

	f, err := m.fs.Open(path)
	if err != nil {
		m.report(id, fmt.Errorf("%w: %q: %v", ErrAudioLoadingFailed, path, err))
		return
	}
	defer f.Close()

	clip, err := m.registry.DecodeFile(path, f)
	if err != nil {
		m.report(id, fmt.Errorf("%w: %q: %v", ErrAudioLoadingFailed, path, err))
		return
	}

	m.lib.Insert(id, clip)
	m.recorder.Record(tracking.KindSoundLoaded, id, path)
}

// Play starts playback of a loaded sound on an idle voice. It never blocks
// the caller. With allowOverlap false the request is silently ignored while
// the sound is already playing; with the pool saturated the request is
// silently dropped.
func (m *Manager) Play(id string, allowOverlap bool) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.doPlay(id, allowOverlap)
	}()
}

func (m *Manager) doPlay(id string, allowOverlap bool) {
	m.ensureEngineRunning()

	clip, ok := m.lib.Lookup(id)
	if !ok {
		m.report(id, fmt.Errorf("%w: %q", ErrUnknownSound, id))
		return
	}

	// Overlap suppression is not an error, just a quiet no-op
	if !allowOverlap && m.pool.IsPlaying(id) {
		slog.Debug("overlap suppressed", "sound", id)
		m.recorder.Record(tracking.KindOverlapSuppressed, id, "")
		return
	}

	if !m.eng.Running() {
		m.report(id, fmt.Errorf("%w: cannot play %q", ErrEngineStopped, id))
		return
	}

	started, err := m.pool.StartSound(id, clip)
	if err != nil {
		m.report(id, fmt.Errorf("%w: %q: %v", ErrEngineStopped, id, err))
		return
	}
	if !started {
		// Saturation is expected under effect spam; degrade silently
		m.recorder.Record(tracking.KindPlayDropped, id, "pool saturated")
		return
	}

	m.recorder.Record(tracking.KindPlayStarted, id, "")
}

// Stop halts every voice currently playing the sound. Fire-and-forget. A stop
// for an identifier that was never loaded is reported through the error sink;
// a stop for a loaded sound nothing is playing is a quiet no-op.
func (m *Manager) Stop(id string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, ok := m.lib.Lookup(id); !ok {
			m.report(id, fmt.Errorf("%w: %q", ErrUnknownSound, id))
			return
		}
		m.pool.StopAll(id)
	}()
}

// ensureEngineRunning restarts a stopped engine, falling back to a full
// engine reset plus pool rebuild when the restart fails.
func (m *Manager) ensureEngineRunning() {
	m.engMu.Lock()
	defer m.engMu.Unlock()

	if m.eng.Running() {
		return
	}

	slog.Warn("output engine found stopped, attempting restart")
	err := m.eng.Start()
	if err == nil {
		return
	}
	slog.Error("engine restart failed, performing full reset", "error", err)

	if err := m.eng.Reset(); err != nil {
		m.report("", fmt.Errorf("%w: reset failed: %v", ErrEngineStopped, err))
		return
	}
	if err := m.pool.Reset(m.eng); err != nil {
		m.report("", fmt.Errorf("%w: pool rebuild failed: %v", ErrEngineStopped, err))
		return
	}

	slog.Info("engine and voice pool reset completed")
}

// Stats is a point-in-time snapshot for observability.
type Stats struct {
	LoadedSounds  int
	Voices        int
	VoiceCap      int
	IdleVoices    int
	PlayingVoices int
}

// Stats samples the library and pool. Read-only; takes each lock briefly.
func (m *Manager) Stats() Stats {
	idle, playing := m.pool.Counts()
	return Stats{
		LoadedSounds:  m.lib.Len(),
		Voices:        m.pool.Size(),
		VoiceCap:      m.pool.Cap(),
		IdleVoices:    idle,
		PlayingVoices: playing,
	}
}

// LoadedSounds returns the identifiers currently in the library, sorted.
func (m *Manager) LoadedSounds() []string {
	return m.lib.Names()
}

// flush waits for every dispatched background request. Tests only.
func (m *Manager) flush() {
	m.wg.Wait()
}

// Close stops diagnostics, waits out in-flight requests and releases the
// pool, engine and journal.
func (m *Manager) Close() error {
	m.StopDiagnostics()
	m.wg.Wait()
	m.pool.Close()

	m.engMu.Lock()
	defer m.engMu.Unlock()
	if err := m.eng.Stop(); err != nil {
		slog.Debug("engine stop during close", "error", err)
	}
	if err := m.eng.Close(); err != nil {
		return fmt.Errorf("failed to close output engine: %w", err)
	}
	return m.recorder.Close()
}
