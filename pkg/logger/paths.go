/* pkg/logger/paths.go */

package logger

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformLogPaths returns candidate log file paths in priority order.
func PlatformLogPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			stateLogPath(),
			"/tmp/kyklos/kyklos.log",
		}
	case "linux":
		return []string{
			"/var/log/kyklos/kyklos.log", // best if writable
			stateLogPath(),               // user-local fallback
			"/tmp/kyklos/kyklos.log",     // ephemeral
		}
	default:
		return []string{stateLogPath()}
	}
}

// stateLogPath follows the XDG state directory convention,
// e.g. ~/.local/state/kyklos/kyklos.log.
func stateLogPath() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "kyklos", "kyklos.log")
}

// ResolveLogPath returns the first candidate path that can be opened for
// appending, or empty if none is writable.
func ResolveLogPath() string {
	for _, path := range PlatformLogPaths() {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			continue
		}
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			continue
		}
		_ = file.Close()
		return path
	}
	return ""
}
