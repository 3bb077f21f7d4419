// Package logger provides the leveled logger used across the process tracker.
// It wraps the standard `log` package and filters messages by level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelDebug is used for detailed debugging information, including SQL issued by the store.
	LevelDebug LogLevel = iota
	// LevelInfo is used for run registration and status transitions.
	LevelInfo
	// LevelWarn is used for rejected operations the caller may retry.
	LevelWarn
	// LevelError is used for failures surfaced to the caller.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

// String returns the upper-case name of the level.
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
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

// logLevel is the currently set global log level.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// ParseLevel converts a level name into a LogLevel.
// Valid values are "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "FATAL" and "CRITICAL" (case-insensitive).
// The second return value is false when the name is not recognized.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL", "CRITICAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global log level.
// An unknown value falls back to INFO and prints a notice to standard output.
func SetLogLevel(level string) {
	lvl, ok := ParseLevel(level)
	if !ok {
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	}
	logLevel.Store(int32(lvl))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// SetOutput redirects log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func enabled(l LogLevel) bool {
	return GetLogLevel() <= l
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
