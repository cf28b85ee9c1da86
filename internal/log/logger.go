// Package log is the process-wide leveled logger. It keeps the small
// printf-style surface the rest of the code base calls (Infof, Warnf, ...)
// and writes through zerolog.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

var (
	mu      sync.RWMutex
	level   = LevelInfo
	logger  = newConsoleLogger(os.Stderr)
	logFile *os.File
)

// consoleTimeFormat keeps microseconds, so the timestamp field must carry
// sub-second precision for the console writer to reformat.
const consoleTimeFormat = "15:04:05.000000"

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func newConsoleLogger(w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	return zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// SetOutput redirects log output to w using the console format.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newConsoleLogger(w).Level(level.zerolog())
}

// SetFile redirects log output to a JSON log file at path, creating parent
// directories as needed. It is used while the terminal UI owns the screen.
func SetFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logger = zerolog.New(f).With().Timestamp().Logger().Level(level.zerolog())
	return nil
}

// Close releases the log file opened by SetFile, if any, and falls back to
// stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	logger = newConsoleLogger(os.Stderr).Level(level.zerolog())
	return err
}

// SetLevel sets the global logging level.
func SetLevel(l LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	logger = logger.Level(l.zerolog())
}

// Logger returns the underlying zerolog logger for structured fields.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) {
	l := Logger()
	l.Debug().Msgf(format, v...)
}

// Infof logs a formatted info message.
func Infof(format string, v ...any) {
	l := Logger()
	l.Info().Msgf(format, v...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) {
	l := Logger()
	l.Warn().Msgf(format, v...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) {
	l := Logger()
	l.Error().Msgf(format, v...)
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	l := Logger()
	l.WithLevel(zerolog.FatalLevel).Msgf(format, v...)
	os.Exit(1)
}
