// Package logging provides a leveled logging infrastructure for Flint's
// library packages and CLI. Loggers are safe for concurrent use and have the
// novel property that a nil *Logger is valid and simply discards all output.
package logging

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger is the main logger type. It wraps an output stream, a maximum output
// level, and an optional name prefix. Loggers created by Sublogger share the
// underlying stream and lock of their parent.
type Logger struct {
	// level is the maximum level at which the logger will emit messages.
	level Level
	// prefix is any prefix specified for the logger.
	prefix string
	// outputLock serializes access to output. It is shared with subloggers.
	outputLock *sync.Mutex
	// output is the stream to which log lines are written.
	output io.Writer
}

// NewLogger creates a new logger that writes messages at or below the
// specified level to the specified output stream.
func NewLogger(level Level, output io.Writer) *Logger {
	return &Logger{
		level:      level,
		outputLock: &sync.Mutex{},
		output:     output,
	}
}

// Sublogger creates a new sublogger with the specified name appended to the
// parent's prefix. If the logger is nil, then the sublogger will be as well.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{
		level:      l.level,
		prefix:     prefix,
		outputLock: l.outputLock,
		output:     l.output,
	}
}

// Level returns the maximum output level for the logger. Nil loggers return
// LevelDisabled.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelDisabled
	}
	return l.level
}

// emit writes a single line at the specified level, if enabled.
func (l *Logger) emit(level Level, message string) {
	if l == nil || level > l.level {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000000")
	l.outputLock.Lock()
	defer l.outputLock.Unlock()
	if l.prefix != "" {
		fmt.Fprintf(l.output, "%s [%s] <%s> %s\n", timestamp, level, l.prefix, message)
	} else {
		fmt.Fprintf(l.output, "%s [%s] %s\n", timestamp, level, message)
	}
}

// Log logs with semantics equivalent to fmt.Print at the specified level.
func (l *Logger) Log(level Level, v ...any) {
	if l == nil || level > l.level {
		return
	}
	l.emit(level, fmt.Sprint(v...))
}

// Logf logs with semantics equivalent to fmt.Printf at the specified level.
func (l *Logger) Logf(level Level, format string, v ...any) {
	if l == nil || level > l.level {
		return
	}
	l.emit(level, fmt.Sprintf(format, v...))
}

// Error logs an error message with semantics equivalent to fmt.Print.
func (l *Logger) Error(v ...any) {
	l.Log(LevelError, v...)
}

// Errorf logs an error message with semantics equivalent to fmt.Printf.
func (l *Logger) Errorf(format string, v ...any) {
	l.Logf(LevelError, format, v...)
}

// Warn logs a warning message with semantics equivalent to fmt.Print.
func (l *Logger) Warn(v ...any) {
	l.Log(LevelWarn, v...)
}

// Warnf logs a warning message with semantics equivalent to fmt.Printf.
func (l *Logger) Warnf(format string, v ...any) {
	l.Logf(LevelWarn, format, v...)
}

// Info logs an informational message with semantics equivalent to fmt.Print.
func (l *Logger) Info(v ...any) {
	l.Log(LevelInfo, v...)
}

// Infof logs an informational message with semantics equivalent to
// fmt.Printf.
func (l *Logger) Infof(format string, v ...any) {
	l.Logf(LevelInfo, format, v...)
}

// Debug logs a debugging message with semantics equivalent to fmt.Print.
func (l *Logger) Debug(v ...any) {
	l.Log(LevelDebug, v...)
}

// Debugf logs a debugging message with semantics equivalent to fmt.Printf.
func (l *Logger) Debugf(format string, v ...any) {
	l.Logf(LevelDebug, format, v...)
}

// Trace logs a tracing message with semantics equivalent to fmt.Print.
func (l *Logger) Trace(v ...any) {
	l.Log(LevelTrace, v...)
}

// Tracef logs a tracing message with semantics equivalent to fmt.Printf.
func (l *Logger) Tracef(format string, v ...any) {
	l.Logf(LevelTrace, format, v...)
}
