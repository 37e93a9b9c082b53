// Package logger provides the leveled logger shared by the daemon and its
// background collaborators. It is safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level controls which messages are written.
type Level int

const (
	// LevelOff disables all output.
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

// FromVerbosity maps a repeated -v count to a level.
func FromVerbosity(count int) Level {
	switch {
	case count <= 0:
		return LevelWarn
	case count == 1:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// Logger writes prefixed, timestamped lines at or below its level.
type Logger struct {
	mu     sync.RWMutex
	level  Level
	debug  *log.Logger
	info   *log.Logger
	warn   *log.Logger
	errLog *log.Logger
	once   sync.Map
}

// New creates a logger writing to out, or os.Stderr when out is nil.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	flags := log.Ltime

	return &Logger{
		level:  level,
		debug:  log.New(out, "[DBG] ", flags),
		info:   log.New(out, "[INF] ", flags),
		warn:   log.New(out, "[WRN] ", flags),
		errLog: log.New(out, "[ERR] ", flags),
	}
}

// Discard returns a logger that writes nothing. Tests use it.
func Discard() *Logger {
	return New(LevelOff, io.Discard)
}

// SetLevel changes the level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current level.
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) emit(level Level, target *log.Logger, format string, args []any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.level >= level {
		target.Output(3, fmt.Sprintf(format, args...))
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...any) { l.emit(LevelDebug, l.debug, format, args) }

// Info logs at info level.
func (l *Logger) Info(format string, args ...any) { l.emit(LevelInfo, l.info, format, args) }

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...any) { l.emit(LevelWarn, l.warn, format, args) }

// Error logs at error level.
func (l *Logger) Error(format string, args ...any) { l.emit(LevelError, l.errLog, format, args) }

// WarnOnce logs a warning the first time key is seen and drops repeats.
func (l *Logger) WarnOnce(key, format string, args ...any) {
	if _, seen := l.once.LoadOrStore(key, struct{}{}); seen {
		return
	}
	l.emit(LevelWarn, l.warn, format, args)
}
