// Package resolver locates sound source files for the playback manager.
package resolver

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Locator resolves a logical sound source reference to a concrete file path.
// typeHint optionally pins the file extension ("wav", "mp3", ...); scope
// optionally narrows the search to a subdirectory of each root.
type Locator interface {
	Resolve(name, typeHint, scope string) (string, error)
}

// NotFoundError reports a source that could not be located, with every
// candidate path that was checked.
type NotFoundError struct {
	Name       string
	Candidates []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sound source %q not found (checked %d paths)", e.Name, len(e.Candidates))
}

// DefaultExtensions is the extension priority order used when no typeHint
// pins one. Matches the decoder registry's supported formats.
var DefaultExtensions = []string{"wav", "mp3", "aiff", "aif"}

// DirLocator resolves names against a prioritized list of root directories,
// trying each supported extension in order. The first existing file wins.
type DirLocator struct {
	fs         afero.Fs
	roots      []string
	extensions []string
}

// NewDirLocator creates a locator over the given roots. A nil fs means the
// OS filesystem; empty extensions mean DefaultExtensions.
func NewDirLocator(fs afero.Fs, roots []string, extensions []string) *DirLocator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	slog.Debug("creating directory locator",
		"roots", roots,
		"extensions", extensions)

	return &DirLocator{
		fs:         fs,
		roots:      roots,
		extensions: extensions,
	}
}

// Roots returns the search roots in priority order.
func (l *DirLocator) Roots() []string {
	return l.roots
}

// Resolve finds the first existing file for the reference. A reference that
// is already a path with an extension is checked as-is (absolute, or relative
// to each root); bare names are expanded with the candidate extensions.
func (l *DirLocator) Resolve(name, typeHint, scope string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("sound source reference cannot be empty")
	}

	candidates := l.candidates(name, typeHint, scope)

	for i, candidate := range candidates {
		if ok, err := afero.Exists(l.fs, candidate); err == nil && ok {
			slog.Debug("sound source resolved",
				"name", name,
				"resolved_path", candidate,
				"candidate_index", i)
			return candidate, nil
		}
	}

	slog.Warn("sound source not resolved",
		"name", name,
		"candidates_checked", len(candidates))

	return "", &NotFoundError{Name: name, Candidates: candidates}
}

// candidates builds the ordered list of paths to check.
func (l *DirLocator) candidates(name, typeHint, scope string) []string {
	extensions := l.extensions
	if typeHint != "" {
		extensions = []string{strings.TrimPrefix(typeHint, ".")}
	}
	hasExt := filepath.Ext(name) != ""

	var candidates []string
	if filepath.IsAbs(name) {
		if hasExt {
			return []string{name}
		}
		for _, ext := range extensions {
			candidates = append(candidates, name+"."+ext)
		}
		return candidates
	}

	for _, root := range l.roots {
		dir := root
		if scope != "" {
			dir = filepath.Join(root, scope)
		}
		if hasExt {
			candidates = append(candidates, filepath.Join(dir, name))
			continue
		}
		for _, ext := range extensions {
			candidates = append(candidates, filepath.Join(dir, name+"."+ext))
		}
	}
	return candidates
}
