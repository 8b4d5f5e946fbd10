package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message
type Level int

const (
	// LevelSilent disables all logging
	LevelSilent Level = iota
	// LevelError shows only errors
	LevelError
	// LevelWarn shows warnings and errors
	LevelWarn
	// LevelInfo shows info, warnings, and errors
	LevelInfo
	// LevelDebug shows all logs including debug information
	LevelDebug
)

var levelNames = map[Level]string{
	LevelSilent: "SILENT",
	LevelError:  "ERROR",
	LevelWarn:   "WARN",
	LevelInfo:   "INFO",
	LevelDebug:  "DEBUG",
}

// ParseLevel maps a level name (case-insensitive) to a Level.
// Unknown names fall back to LevelError.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "silent":
		return LevelSilent
	case "warn":
		return LevelWarn
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelError
	}
}

// Logger provides leveled logging
type Logger struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
}

var defaultLogger = &Logger{
	level:  LevelError,
	output: os.Stderr,
}

// SetLevel sets the global log level
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defaultLogger.level = level
	defaultLogger.mu.Unlock()
}

// SetOutput redirects the global logger, mainly for tests
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defaultLogger.output = w
	defaultLogger.mu.Unlock()
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.output, "[%s] %s: %s\n", timestamp, levelNames[level], message)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	defaultLogger.log(LevelDebug, format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	defaultLogger.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	defaultLogger.log(LevelWarn, format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	defaultLogger.log(LevelError, format, args...)
}
