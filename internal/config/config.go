package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
}

// Config represents polyphon configuration
type Config struct {
	Volume          float64            `json:"volume"`                 // Playback volume (0.0 to 1.0)
	Engine          string             `json:"engine"`                 // Output engine (auto, malgo, oto, system_command)
	InitialVoices   int                `json:"initial_voices"`         // Voices created at startup
	MaxVoices       int                `json:"max_voices"`             // Hard cap on concurrent voices
	SoundPaths      []string           `json:"sound_paths"`            // Extra directories searched for sounds
	LogLevel        string             `json:"log_level"`              // Log level (debug, info, warn, error)
	TrackingEnabled bool               `json:"tracking_enabled"`       // Whether the playback journal is kept
	FileLogging     *FileLoggingConfig `json:"file_logging,omitempty"` // File logging configuration
}

// ConfigManager handles loading and validating configuration
type ConfigManager struct {
	fs  afero.Fs
	xdg *XDGDirs
}

// NewConfigManager creates a configuration manager over the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFs(afero.NewOsFs())
}

// NewConfigManagerWithFs creates a configuration manager with an injected filesystem
func NewConfigManagerWithFs(fs afero.Fs) *ConfigManager {
	return &ConfigManager{
		fs:  fs,
		xdg: NewXDGDirs(),
	}
}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	return &Config{
		Volume:          0.5,
		Engine:          "auto",
		InitialVoices:   8,
		MaxVoices:       48,
		SoundPaths:      []string{}, // XDG paths are always searched
		LogLevel:        "warn",
		TrackingEnabled: false,
		FileLogging: &FileLoggingConfig{
			Enabled:    true,
			Filename:   "", // empty = XDG cache path
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// LoadFromFile loads configuration from a specific file
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(&config); err != nil {
		slog.Error("config validation failed", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	slog.Debug("config loaded",
		"file_path", filePath,
		"volume", config.Volume,
		"engine", config.Engine,
		"initial_voices", config.InitialVoices,
		"max_voices", config.MaxVoices)
	return &config, nil
}

// LoadConfig loads configuration from the first existing XDG config path,
// falling back to defaults, then applies environment overrides.
func (cm *ConfigManager) LoadConfig() *Config {
	var config *Config

	for _, path := range cm.xdg.GetConfigPaths("config.json") {
		loaded, err := cm.LoadFromFile(path)
		if err == nil {
			slog.Debug("config file found", "path", path)
			config = loaded
			break
		}
	}

	if config == nil {
		slog.Debug("no config file found, using defaults")
		config = cm.GetDefaultConfig()
	}

	cm.applyEnvOverrides(config)
	return config
}

// SaveToFile writes the configuration as indented JSON
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := cm.fs.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved", "file_path", filePath)
	return nil
}

// applyEnvOverrides applies POLYPHON_* environment variable overrides
func (cm *ConfigManager) applyEnvOverrides(config *Config) {
	if v := os.Getenv("POLYPHON_VOLUME"); v != "" {
		if volume, err := strconv.ParseFloat(v, 64); err == nil && volume >= 0.0 && volume <= 1.0 {
			slog.Debug("volume overridden from environment", "volume", volume)
			config.Volume = volume
		} else {
			slog.Warn("invalid POLYPHON_VOLUME, ignoring", "value", v)
		}
	}

	if v := os.Getenv("POLYPHON_ENGINE"); v != "" {
		slog.Debug("engine overridden from environment", "engine", v)
		config.Engine = v
	}

	if v := os.Getenv("POLYPHON_LOG_LEVEL"); v != "" {
		level := strings.ToLower(v)
		switch level {
		case "debug", "info", "warn", "error":
			slog.Debug("log level overridden from environment", "log_level", level)
			config.LogLevel = level
		default:
			slog.Warn("invalid POLYPHON_LOG_LEVEL, ignoring", "value", v)
		}
	}

	if v := os.Getenv("POLYPHON_MAX_VOICES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= config.InitialVoices {
			slog.Debug("voice cap overridden from environment", "max_voices", n)
			config.MaxVoices = n
		} else {
			slog.Warn("invalid POLYPHON_MAX_VOICES, ignoring", "value", v)
		}
	}
}

// ValidateConfig checks configuration invariants
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	if config.Volume < 0.0 || config.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", config.Volume)
	}

	switch config.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if config.InitialVoices < 1 {
		return fmt.Errorf("initial_voices must be at least 1, got %d", config.InitialVoices)
	}
	if config.MaxVoices < config.InitialVoices {
		return fmt.Errorf("max_voices %d is below initial_voices %d",
			config.MaxVoices, config.InitialVoices)
	}

	switch config.Engine {
	case "", "auto", "malgo", "oto", "system_command":
	default:
		return fmt.Errorf("invalid engine: %s", config.Engine)
	}

	return nil
}

// SoundSearchPaths returns every directory the locator should search, config
// extras first, then the XDG sound directories.
func (cm *ConfigManager) SoundSearchPaths(config *Config) []string {
	paths := make([]string, 0, len(config.SoundPaths)+2)
	paths = append(paths, config.SoundPaths...)
	paths = append(paths, cm.xdg.GetSoundPaths()...)
	return paths
}

// GetLogFilePath returns the rotating log file location, creating the cache
// directory if needed.
func (cm *ConfigManager) GetLogFilePath(config *Config) string {
	if config.FileLogging != nil && config.FileLogging.Filename != "" {
		return config.FileLogging.Filename
	}
	if err := cm.xdg.CreateCacheDir("log"); err != nil {
		slog.Warn("failed to create log cache dir", "error", err)
	}
	return filepath.Join(cm.xdg.GetCachePath("log"), "polyphon.log")
}

// GetTrackingDBPath returns the playback journal location under XDG cache.
func (cm *ConfigManager) GetTrackingDBPath() string {
	return filepath.Join(cm.xdg.GetCachePath(""), "events.db")
}
