// Package logging provides the printf-style leveled logger used by the
// kernel and client dispatch engines.
package logging

import (
	"fmt"
	"log"
	"strings"

	"github.com/mgutz/ansi"
)

// Level is a logging threshold. Higher is more severe; a ColorLogger
// prints only messages whose level is at or above its own Level.
type Level int

const (
	LevelAll Level = iota
	LevelInfo
	LevelWarn
	LevelNone
)

// Logger is the printf-style interface every engine logs through.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// ColorLogger logs through the standard library's log package (stderr
// by default), optionally in color, with a fixed prefix.
type ColorLogger struct {
	Prefix string
	Level  Level
	Color  bool
}

// New returns a ColorLogger at LevelInfo with color enabled. Engines
// given no Logger fall back to Nop, not to this.
func New(prefix string) *ColorLogger {
	return &ColorLogger{Prefix: prefix, Level: LevelInfo, Color: true}
}

func (l *ColorLogger) Debug(format string, args ...interface{}) {
	l.log(LevelAll, "grey", "DEBUG", format, args...)
}

func (l *ColorLogger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, "green", "INFO", format, args...)
}

func (l *ColorLogger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, "yellow", "WARN", format, args...)
}

func (l *ColorLogger) Error(format string, args ...interface{}) {
	l.log(LevelNone, "red", "ERROR", format, args...)
}

func (l *ColorLogger) log(threshold Level, color, typePrefix, format string, args ...interface{}) {
	if l.Level > threshold {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if l.Color && color != "" {
		lines := strings.Split(msg, "\n")
		for i := range lines {
			lines[i] = ansi.Color(lines[i], color)
		}
		msg = strings.Join(lines, "\n")
		typePrefix = ansi.Color(typePrefix, color)
	}

	log.Println("[" + typePrefix + "] " + l.Prefix + msg)
}

// Nop is a Logger that discards everything, used when a caller passes no
// Logger to an engine constructor.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
