package manager

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/youpy/go-wav"

	"polyphon.dev/internal/audio"
	"polyphon.dev/internal/engine"
	"polyphon.dev/internal/resolver"
)

// fakeChannel records playback calls and lets tests drive completions.
type fakeChannel struct {
	mu         sync.Mutex
	onComplete func()
	playCount  int
	stopCount  int
}

func (c *fakeChannel) Play(clip *audio.AudioData, onComplete func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = onComplete
	c.playCount++
	return nil
}

func (c *fakeChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = nil
	c.stopCount++
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func (c *fakeChannel) complete() {
	c.mu.Lock()
	cb := c.onComplete
	c.onComplete = nil
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// fakeEngine is a controllable in-memory engine. startFailures makes the next
// N Start calls fail, to exercise the restart-then-reset recovery path.
type fakeEngine struct {
	mu            sync.Mutex
	channels      []*fakeChannel
	running       bool
	startFailures int
	resetCount    int
}

func (e *fakeEngine) NewChannel() (engine.Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := &fakeChannel{}
	e.channels = append(e.channels, ch)
	return ch, nil
}

func (e *fakeEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startFailures > 0 {
		e.startFailures--
		return errors.New("device unavailable")
	}
	e.running = true
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	return nil
}

func (e *fakeEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetCount++
	e.startFailures = 0
	e.running = true
	return nil
}

func (e *fakeEngine) Close() error { return e.Stop() }

func (e *fakeEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *fakeEngine) channelAt(i int) *fakeChannel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels[i]
}

func (e *fakeEngine) setRunning(running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = running
}

// fakeFactory hands out a pre-built engine regardless of the requested type.
type fakeFactory struct {
	eng *fakeEngine
}

func (f *fakeFactory) CreateEngine(engineType string, opts engine.Options) (engine.Engine, error) {
	return f.eng, nil
}

func (f *fakeFactory) SupportedEngines() []string { return []string{"fake"} }

func (f *fakeFactory) IsValidEngineType(engineType string) bool { return true }

// errSink collects errors delivered to the manager's error sink.
type errSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errSink) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func (s *errSink) has(target error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, err := range s.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeWavFixture places a valid 16-bit stereo WAV on the filesystem.
func writeWavFixture(t *testing.T, fs afero.Fs, path string) {
	t.Helper()

	var buf bytes.Buffer
	const frames = 32
	writer := wav.NewWriter(&buf, frames, 2, 44100, 16)
	if _, err := writer.Write(make([]byte, frames*2*2)); err != nil {
		t.Fatalf("failed to build WAV fixture: %v", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

type testEnv struct {
	mgr  *Manager
	eng  *fakeEngine
	sink *errSink
	fs   afero.Fs
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	eng := &fakeEngine{}
	sink := &errSink{}
	fs := afero.NewMemMapFs()
	writeWavFixture(t, fs, "/sounds/click.wav")
	writeWavFixture(t, fs, "/sounds/boom.wav")

	opts.Factory = &fakeFactory{eng: eng}
	opts.Fs = fs
	opts.OnError = sink.add
	if opts.Locator == nil {
		opts.Locator = resolver.NewDirLocator(fs, []string{"/sounds"}, nil)
	}

	mgr, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	return &testEnv{mgr: mgr, eng: eng, sink: sink, fs: fs}
}

func TestNewAppliesDefaults(t *testing.T) {
	env := newTestEnv(t, Options{})

	stats := env.mgr.Stats()
	if stats.Voices != DefaultInitialVoices {
		t.Errorf("expected %d initial voices, got %d", DefaultInitialVoices, stats.Voices)
	}
	if stats.VoiceCap != DefaultMaxVoices {
		t.Errorf("expected cap %d, got %d", DefaultMaxVoices, stats.VoiceCap)
	}
	if !env.eng.Running() {
		t.Error("engine should be started by construction")
	}
}

func TestLoadRegistersSound(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.mgr.Load("click", "ui-click")
	env.mgr.flush()

	sounds := env.mgr.LoadedSounds()
	if len(sounds) != 1 || sounds[0] != "ui-click" {
		t.Errorf("unexpected library contents: %v", sounds)
	}
	if env.sink.count() != 0 {
		t.Errorf("unexpected errors: %v", env.sink.errs)
	}
}

func TestLoadOverwritesIdentifier(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.mgr.Load("click", "fx")
	env.mgr.Load("boom", "fx")
	env.mgr.flush()

	if got := env.mgr.Stats().LoadedSounds; got != 1 {
		t.Errorf("re-load must overwrite, got %d sounds", got)
	}
}

func TestLoadMissingSourceReportsNotFound(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.mgr.Load("no-such-sound", "ghost")
	env.mgr.flush()

	if !env.sink.has(ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", env.sink.errs)
	}
	if len(env.mgr.LoadedSounds()) != 0 {
		t.Error("failed load must not register the sound")
	}
}

func TestLoadUndecodableSourceReportsLoadingFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	afero.WriteFile(env.fs, "/sounds/broken.wav", []byte("not a wav"), 0o644)

	env.mgr.Load("broken", "broken")
	env.mgr.flush()

	if !env.sink.has(ErrAudioLoadingFailed) {
		t.Errorf("expected ErrAudioLoadingFailed, got %v", env.sink.errs)
	}
}

func TestPlayUnknownSoundReportsError(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.mgr.Play("never-loaded", false)
	env.mgr.flush()

	if !env.sink.has(ErrUnknownSound) {
		t.Errorf("expected ErrUnknownSound, got %v", env.sink.errs)
	}
	if env.mgr.Stats().PlayingVoices != 0 {
		t.Error("nothing should be playing")
	}
}

func TestPlayStartsVoiceAndCompletionFreesIt(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 2, MaxVoices: 4})

	env.mgr.Load("click", "ui-click")
	env.mgr.flush()
	env.mgr.Play("ui-click", false)
	env.mgr.flush()

	if got := env.mgr.Stats().PlayingVoices; got != 1 {
		t.Fatalf("expected 1 playing voice, got %d", got)
	}

	env.eng.channelAt(0).complete()

	stats := env.mgr.Stats()
	if stats.PlayingVoices != 0 || stats.IdleVoices != 2 {
		t.Errorf("voice not freed: %+v", stats)
	}
}

func TestOverlapSuppression(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 4, MaxVoices: 4})

	env.mgr.Load("click", "fx")
	env.mgr.flush()

	env.mgr.Play("fx", false)
	env.mgr.flush()
	env.mgr.Play("fx", false)
	env.mgr.flush()

	if got := env.mgr.Stats().PlayingVoices; got != 1 {
		t.Errorf("overlap should be suppressed, got %d playing", got)
	}
	if env.sink.count() != 0 {
		t.Errorf("suppression must be silent, got %v", env.sink.errs)
	}
}

func TestOverlapAllowedStacksVoices(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 4, MaxVoices: 4})

	env.mgr.Load("click", "fx")
	env.mgr.flush()

	env.mgr.Play("fx", true)
	env.mgr.Play("fx", true)
	env.mgr.Play("fx", true)
	env.mgr.flush()

	if got := env.mgr.Stats().PlayingVoices; got != 3 {
		t.Errorf("expected 3 stacked voices, got %d", got)
	}
}

func TestSaturationDropsSilently(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 1, MaxVoices: 1})

	env.mgr.Load("click", "fx")
	env.mgr.flush()

	env.mgr.Play("fx", true)
	env.mgr.flush()
	env.mgr.Play("fx", true)
	env.mgr.flush()

	stats := env.mgr.Stats()
	if stats.PlayingVoices != 1 || stats.Voices != 1 {
		t.Errorf("pool exceeded its cap: %+v", stats)
	}
	if env.sink.count() != 0 {
		t.Errorf("saturation must be silent, got %v", env.sink.errs)
	}
}

func TestStopTargetsOnlyNamedSound(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 4, MaxVoices: 4})

	env.mgr.Load("click", "a")
	env.mgr.Load("boom", "b")
	env.mgr.flush()
	env.mgr.Play("a", true)
	env.mgr.Play("b", true)
	env.mgr.flush()

	env.mgr.Stop("a")
	env.mgr.flush()

	stats := env.mgr.Stats()
	if stats.PlayingVoices != 1 {
		t.Errorf("expected only b to survive, got %d playing", stats.PlayingVoices)
	}
	if env.sink.count() != 0 {
		t.Errorf("unexpected errors: %v", env.sink.errs)
	}
}

func TestStopUnknownSoundReportsError(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 2, MaxVoices: 4})

	env.mgr.Load("click", "fx")
	env.mgr.flush()
	env.mgr.Play("fx", false)
	env.mgr.flush()

	env.mgr.Stop("never-loaded")
	env.mgr.flush()

	if !env.sink.has(ErrUnknownSound) {
		t.Errorf("expected ErrUnknownSound, got %v", env.sink.errs)
	}
	if got := env.mgr.Stats().PlayingVoices; got != 1 {
		t.Errorf("stop of an unknown id must not touch playing voices, got %d", got)
	}

	// A loaded but idle sound stops silently
	env.mgr.Load("boom", "quiet")
	env.mgr.flush()
	env.mgr.Stop("quiet")
	env.mgr.flush()

	if env.sink.count() != 1 {
		t.Errorf("stop of a loaded idle sound must be silent, got %v", env.sink.errs)
	}
}

func TestPlayRestartsStoppedEngine(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 2, MaxVoices: 4})

	env.mgr.Load("click", "fx")
	env.mgr.flush()

	env.eng.setRunning(false)

	env.mgr.Play("fx", false)
	env.mgr.flush()

	if !env.eng.Running() {
		t.Error("engine should have been restarted")
	}
	if got := env.mgr.Stats().PlayingVoices; got != 1 {
		t.Errorf("expected playback after restart, got %d playing", got)
	}
	if env.sink.count() != 0 {
		t.Errorf("restart should be transparent, got %v", env.sink.errs)
	}
}

func TestPlayFallsBackToFullResetWhenRestartFails(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 2, MaxVoices: 4})

	env.mgr.Load("click", "fx")
	env.mgr.flush()
	env.mgr.Play("fx", true)
	env.mgr.flush()

	env.eng.setRunning(false)
	env.eng.mu.Lock()
	env.eng.startFailures = 1
	env.eng.mu.Unlock()

	env.mgr.Play("fx", true)
	env.mgr.flush()

	env.eng.mu.Lock()
	resets := env.eng.resetCount
	env.eng.mu.Unlock()
	if resets != 1 {
		t.Errorf("expected one engine reset, got %d", resets)
	}

	// The pool was rebuilt at its initial size with every voice idle before
	// the new request landed
	stats := env.mgr.Stats()
	if stats.Voices != 2 {
		t.Errorf("expected rebuilt pool of 2 voices, got %d", stats.Voices)
	}
	if stats.PlayingVoices != 1 {
		t.Errorf("expected the new request to play, got %d playing", stats.PlayingVoices)
	}
}

func TestConcurrentPlaysRespectCap(t *testing.T) {
	env := newTestEnv(t, Options{InitialVoices: 8, MaxVoices: 48})

	env.mgr.Load("click", "fx")
	env.mgr.flush()

	for i := 0; i < 49; i++ {
		env.mgr.Play("fx", true)
	}
	env.mgr.flush()

	stats := env.mgr.Stats()
	if stats.PlayingVoices != 48 {
		t.Errorf("expected exactly 48 playing voices, got %d", stats.PlayingVoices)
	}
	if stats.Voices != 48 {
		t.Errorf("expected pool to grow to exactly 48, got %d", stats.Voices)
	}
	if env.sink.count() != 0 {
		t.Errorf("the 49th request must drop silently, got %v", env.sink.errs)
	}
}

func TestDiagnosticsStartStopIdempotent(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.mgr.StartDiagnostics(10 * time.Millisecond)
	env.mgr.StartDiagnostics(10 * time.Millisecond) // no-op while running

	time.Sleep(25 * time.Millisecond)

	env.mgr.StopDiagnostics()
	env.mgr.StopDiagnostics() // no-op when stopped
}
