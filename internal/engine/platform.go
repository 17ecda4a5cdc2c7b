package engine

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// IsWSL checks if the current environment is Windows Subsystem for Linux
func IsWSL() bool {
	return detectWSLFromData(readProcVersion(), os.Getenv("WSL_DISTRO_NAME"))
}

// detectWSLFromData checks for WSL indicators in the provided data (for testing)
func detectWSLFromData(procVersion, wslEnv string) bool {
	if wslEnv != "" {
		slog.Debug("WSL detected via environment variable", "distro", wslEnv)
		return true
	}

	procLower := strings.ToLower(procVersion)
	if strings.Contains(procLower, "microsoft") || strings.Contains(procLower, "wsl") {
		slog.Debug("WSL detected via /proc/version")
		return true
	}
	return false
}

// readProcVersion reads /proc/version file content
func readProcVersion() string {
	content, err := os.ReadFile("/proc/version")
	if err != nil {
		return ""
	}
	return string(content)
}

// CommandExists checks if a command is available in PATH
func CommandExists(command string) bool {
	if command == "" {
		return false
	}
	_, err := exec.LookPath(command)
	return err == nil
}

// DetectOptimalEngine determines the best engine type for the current system
func DetectOptimalEngine() string {
	return detectOptimalEngineWithChecker(IsWSL(), CommandExists)
}

// detectOptimalEngineWithChecker allows dependency injection for testing
func detectOptimalEngineWithChecker(isWSL bool, commandChecker func(string) bool) string {
	if isWSL {
		// In WSL, shared audio libraries tend to crackle; prefer a system player
		if cmd := preferredSystemCommandWithChecker(commandChecker); cmd != "" {
			slog.Debug("WSL detected, using system command engine", "command", cmd)
			return "system_command"
		}
		slog.Warn("no system audio commands found in WSL, falling back to malgo")
		return "malgo"
	}

	slog.Debug("native system detected, preferring malgo engine")
	return "malgo"
}

// PreferredSystemCommand finds the best available system audio command
func PreferredSystemCommand() string {
	return preferredSystemCommandWithChecker(CommandExists)
}

// preferredSystemCommandWithChecker allows dependency injection for testing
func preferredSystemCommandWithChecker(commandChecker func(string) bool) string {
	// Priority order: paplay (PulseAudio) > ffplay (FFmpeg) > aplay (ALSA) > afplay (macOS)
	preferredCommands := []string{"paplay", "ffplay", "aplay", "afplay"}

	for _, cmd := range preferredCommands {
		if commandChecker(cmd) {
			slog.Debug("system audio command available", "command", cmd)
			return cmd
		}
	}
	return ""
}
