// Package logging provides a minimal leveled logger for the cache and its
// consumers. It wraps the standard library's log package rather than
// pulling in a structured-logging framework: the cache has no log
// aggregation needs of its own, only a way for operators to dial verbosity
// up or down.
package logging

import (
	"log"
	"strings"
)

// LogLevel orders severities from most to least verbose.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Level is the current minimum severity that will be logged.
var Level = LevelInfo

// DebugLogs is kept in step with Level == LevelDebug by SetLevel; setting it
// to true directly also enables debug output whatever Level is (kept for
// backward-compatible call sites).
var DebugLogs bool

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel parses a level name case-insensitively, defaulting to LevelInfo
// for anything unrecognized.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel sets the active logging level.
func SetLevel(l LogLevel) {
	Level = l
	DebugLogs = l <= LevelDebug
}

func logf(l LogLevel, prefix, format string, args ...any) {
	if l < Level && !(l == LevelDebug && DebugLogs) {
		return
	}
	log.Printf(prefix+format, args...)
}

func Debugf(format string, args ...any) { logf(LevelDebug, "[DEBUG] ", format, args...) }
func Infof(format string, args ...any)  { logf(LevelInfo, "[INFO] ", format, args...) }
func Warnf(format string, args ...any)  { logf(LevelWarn, "[WARN] ", format, args...) }
func Errorf(format string, args ...any) { logf(LevelError, "[ERROR] ", format, args...) }
