package tracking

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	db, err := NewDatabase(":memory:")
	require.NoError(t, err, "in-memory database should open")
	recorder := NewRecorderWithDB(db)
	t.Cleanup(func() { recorder.Close() })
	return recorder
}

func TestRecordAndRecent(t *testing.T) {
	recorder := newTestRecorder(t)

	recorder.Record(KindSoundLoaded, "ui-click", "/sounds/click.wav")
	recorder.Record(KindPlayStarted, "ui-click", "")
	recorder.Record(KindPlayDropped, "ui-click", "pool saturated")

	events, err := recorder.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	kinds := make(map[string]bool)
	for _, e := range events {
		assert.NotEmpty(t, e.ID, "every event gets a unique id")
		assert.Equal(t, "ui-click", e.Sound)
		assert.False(t, e.Timestamp.IsZero())
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[KindSoundLoaded])
	assert.True(t, kinds[KindPlayStarted])
	assert.True(t, kinds[KindPlayDropped])
}

func TestRecentLimit(t *testing.T) {
	recorder := newTestRecorder(t)

	for i := 0; i < 5; i++ {
		recorder.Record(KindPlayStarted, "fx", "")
	}

	events, err := recorder.Recent(3)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	// Non-positive limit falls back to the default
	events, err = recorder.Recent(0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestCountByKind(t *testing.T) {
	recorder := newTestRecorder(t)

	recorder.Record(KindPlayStarted, "a", "")
	recorder.Record(KindPlayStarted, "b", "")
	recorder.Record(KindOverlapSuppressed, "a", "")
	recorder.Record(KindError, "c", "unknown sound identifier")

	counts, err := recorder.CountByKind()
	require.NoError(t, err)
	assert.Equal(t, 2, counts[KindPlayStarted])
	assert.Equal(t, 1, counts[KindOverlapSuppressed])
	assert.Equal(t, 1, counts[KindError])
	assert.Zero(t, counts[KindPlayDropped])
}

func TestNilRecorderIsSafe(t *testing.T) {
	var recorder *Recorder

	// Both must be no-ops, not panics
	recorder.Record(KindPlayStarted, "fx", "")
	assert.NoError(t, recorder.Close())
}

func TestRecorderOnDiskDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "events.db")

	recorder, err := NewRecorder(dbPath)
	require.NoError(t, err, "recorder should create parent directories")
	defer recorder.Close()

	recorder.Record(KindSoundLoaded, "fx", "/sounds/fx.wav")

	events, err := recorder.Recent(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindSoundLoaded, events[0].Kind)
}
