// Package logging reports compiler progress and errors on the console.
package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/strager/chocowat/diag"
)

// Level selects how much the Logger prints.
type Level int

const (
	LevelSilent  Level = iota // no output at all
	LevelError                // errors only (default)
	LevelVerbose              // errors and progress messages
)

// ParseLevel converts a level name from the command line or the config file.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "silent":
		return LevelSilent, nil
	case "", "error":
		return LevelError, nil
	case "verbose":
		return LevelVerbose, nil
	}
	return LevelError, fmt.Errorf("unknown log level %q (want silent, error or verbose)", name)
}

// Logger writes messages at or below its level to one writer.
type Logger struct {
	Level Level

	w io.Writer
	m sync.Mutex
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{Level: level, w: w}
}

// CompileError reports err. A *diag.Error is shown with the offending part
// of source; other errors are shown as a tagged message.
func (l *Logger) CompileError(filename, source string, err error) {
	if l.Level < LevelError {
		return
	}
	l.m.Lock()
	defer l.m.Unlock()

	if derr, ok := diag.As(err); ok {
		displayCompileError(l.w, filename, source, derr)
		return
	}
	displayMessage(l.w, ErrorStyleBG, ErrorColorFG, "Error", err.Error())
}

// Error reports a failure that is not tied to a source position.
func (l *Logger) Error(tag string, err error) {
	if l.Level < LevelError {
		return
	}
	l.m.Lock()
	defer l.m.Unlock()
	displayMessage(l.w, ErrorStyleBG, ErrorColorFG, tag, err.Error())
}

// Info reports progress. It prints only at LevelVerbose.
func (l *Logger) Info(tag, msg string) {
	if l.Level < LevelVerbose {
		return
	}
	l.m.Lock()
	defer l.m.Unlock()
	displayMessage(l.w, InfoStyleBG, InfoColorFG, tag, msg)
}

// Infof is Info with a format string.
func (l *Logger) Infof(tag, format string, args ...any) {
	l.Info(tag, fmt.Sprintf(format, args...))
}
