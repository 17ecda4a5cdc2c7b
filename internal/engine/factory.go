package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// Factory creates Engine instances based on configuration
type Factory interface {
	CreateEngine(engineType string, opts Options) (Engine, error)
	SupportedEngines() []string
	IsValidEngineType(engineType string) bool
}

// Factory errors
var (
	ErrInvalidEngineType    = errors.New("invalid engine type")
	ErrEngineCreationFailed = errors.New("engine creation failed")
)

// DefaultFactory implements Factory with platform detection
type DefaultFactory struct {
	isWSLFunc     func() bool
	commandExists func(string) bool
}

// NewFactory creates a DefaultFactory with real platform detection
func NewFactory() *DefaultFactory {
	return &DefaultFactory{
		isWSLFunc:     IsWSL,
		commandExists: CommandExists,
	}
}

// NewFactoryWithDependencies creates a factory with injected detection for testing
func NewFactoryWithDependencies(isWSLFunc func() bool, commandExists func(string) bool) *DefaultFactory {
	return &DefaultFactory{
		isWSLFunc:     isWSLFunc,
		commandExists: commandExists,
	}
}

// CreateEngine creates an Engine of the specified type. An empty type means auto.
func (f *DefaultFactory) CreateEngine(engineType string, opts Options) (Engine, error) {
	if engineType == "" {
		engineType = "auto"
	}

	slog.Debug("creating audio engine", "type", engineType)

	switch engineType {
	case "auto":
		detected := detectOptimalEngineWithChecker(f.isWSLFunc(), f.commandExists)
		slog.Debug("auto-detection result", "selected_type", detected)
		return f.CreateEngine(detected, opts)
	case "malgo":
		return NewMalgoEngine(opts), nil
	case "oto":
		return NewOtoEngine(opts), nil
	case "system_command":
		cmd := preferredSystemCommandWithChecker(f.commandExists)
		if cmd == "" {
			slog.Error("no system audio commands available")
			return nil, fmt.Errorf("%w: no system audio commands found", ErrEngineNotAvailable)
		}
		return NewCommandEngine(cmd, opts), nil
	default:
		slog.Error("invalid engine type requested", "type", engineType)
		return nil, fmt.Errorf("%w: %s", ErrInvalidEngineType, engineType)
	}
}

// SupportedEngines returns all supported engine types
func (f *DefaultFactory) SupportedEngines() []string {
	return []string{"auto", "malgo", "oto", "system_command"}
}

// IsValidEngineType checks if an engine type is supported
func (f *DefaultFactory) IsValidEngineType(engineType string) bool {
	if engineType == "" {
		return true // defaults to auto
	}
	for _, supported := range f.SupportedEngines() {
		if engineType == supported {
			return true
		}
	}
	return false
}
