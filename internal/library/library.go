// Package library keeps decoded sound clips resident in memory keyed by
// their logical identifier.
package library

import (
	"log/slog"
	"sort"
	"sync"

	"polyphon.dev/internal/audio"
)

// Store maps sound identifiers to decoded clips. Inserts overwrite; nothing
// is ever deleted during normal operation. The store has its own lock, which
// is never held together with the voice pool's.
type Store struct {
	mu     sync.RWMutex
	sounds map[string]*audio.AudioData
}

// NewStore creates an empty sound library.
func NewStore() *Store {
	return &Store{
		sounds: make(map[string]*audio.AudioData),
	}
}

// Insert registers a clip under the identifier, replacing any previous clip.
func (s *Store) Insert(id string, clip *audio.AudioData) {
	s.mu.Lock()
	_, replaced := s.sounds[id]
	s.sounds[id] = clip
	total := len(s.sounds)
	s.mu.Unlock()

	if replaced {
		slog.Info("sound buffer replaced", "sound", id, "total_loaded", total)
	} else {
		slog.Debug("sound loaded into library", "sound", id, "total_loaded", total)
	}
}

// Lookup returns the clip registered under the identifier.
func (s *Store) Lookup(id string) (*audio.AudioData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clip, ok := s.sounds[id]
	return clip, ok
}

// Len returns the number of loaded sounds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sounds)
}

// Names returns every loaded identifier, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.sounds))
	for id := range s.sounds {
		names = append(names, id)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}
