/* pkg/logger/logger.go */

package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// L returns the process-wide logger, falling back to the console logger
// if initialization never ran.
func L() *zap.Logger {
	if log == nil {
		log = NewFallbackLogger()
		zap.ReplaceGlobals(log)
	}
	return log
}

// GetLogger is an alias kept for call sites that prefer the long name.
func GetLogger() *zap.Logger {
	return L()
}

// Sync flushes buffered log entries. Errors syncing stdout are expected
// on some platforms and ignored.
func Sync() error {
	if log == nil {
		return nil
	}
	err := log.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

func isStdoutSyncError(err error) bool {
	// zap.Sync on a terminal returns EINVAL/ENOTTY; neither is actionable.
	msg := err.Error()
	return msg == "sync /dev/stdout: invalid argument" ||
		msg == "sync /dev/stdout: inappropriate ioctl for device"
}

// ParseLogLevel maps a LOG_LEVEL string to a zap level, defaulting to Info.
func ParseLogLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// GetLogFileWriter opens the log file for appending with owner-only
// permissions.
func GetLogFileWriter(path string) (zapcore.WriteSyncer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(file), nil
}
