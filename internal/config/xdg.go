package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDir = "polyphon"

// XDGDirs provides XDG Base Directory compliant paths for polyphon
type XDGDirs struct{}

// NewXDGDirs creates a new XDG directory manager
func NewXDGDirs() *XDGDirs {
	return &XDGDirs{}
}

// GetConfigPaths returns prioritized paths where a config file can be found:
// user config dir first, then system config dirs.
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	var paths []string

	userPath := filepath.Join(xdg.ConfigHome, appDir)
	if filename != "" {
		userPath = filepath.Join(userPath, filename)
	}
	paths = append(paths, userPath)

	for _, configDir := range xdg.ConfigDirs {
		systemPath := filepath.Join(configDir, appDir)
		if filename != "" {
			systemPath = filepath.Join(systemPath, filename)
		}
		paths = append(paths, systemPath)
	}

	slog.Debug("generated config paths", "filename", filename, "total_paths", len(paths))
	return paths
}

// GetSoundPaths returns prioritized directories where sound files are looked
// up: user data dir first, then system data dirs.
func (x *XDGDirs) GetSoundPaths() []string {
	var paths []string

	baseDir := filepath.Join(appDir, "sounds")
	paths = append(paths, filepath.Join(xdg.DataHome, baseDir))
	for _, dataDir := range xdg.DataDirs {
		paths = append(paths, filepath.Join(dataDir, baseDir))
	}

	slog.Debug("generated sound paths", "total_paths", len(paths))
	return paths
}

// GetCachePath returns the cache directory path for a specific purpose
func (x *XDGDirs) GetCachePath(purpose string) string {
	baseDir := appDir
	if purpose != "" {
		baseDir = filepath.Join(baseDir, purpose)
	}
	return filepath.Join(xdg.CacheHome, baseDir)
}

// CreateCacheDir ensures the cache directory for a purpose exists
func (x *XDGDirs) CreateCacheDir(purpose string) error {
	path := x.GetCachePath(purpose)
	return os.MkdirAll(path, 0755)
}
