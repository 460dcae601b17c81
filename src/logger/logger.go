package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stderr.
// Stdout is left to command output such as snapshot JSON.
type ConsoleLogger struct {
	out   io.Writer
	level logrus.Level
}

// NewConsoleLogger logs at info level, or debug level when debug is set.
func NewConsoleLogger(debug bool) *ConsoleLogger {
	level := logrus.InfoLevel
	if debug {
		level = logrus.DebugLevel
	}
	return &ConsoleLogger{out: os.Stderr, level: level}
}

// NewLeveledConsoleLogger logs at the named logrus level. At "warn" or
// "error" info lines are dropped; errors are written at every level from
// "error" up.
func NewLeveledConsoleLogger(level string) (*ConsoleLogger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return &ConsoleLogger{out: os.Stderr, level: lvl}, nil
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.write(logrus.InfoLevel, "[INFO] ", msg, args)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.write(logrus.ErrorLevel, "[ERROR] ", msg, args)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.write(logrus.DebugLevel, "[DEBUG] ", msg, args)
}

func (c *ConsoleLogger) write(level logrus.Level, prefix, msg string, args []interface{}) {
	if level > c.level {
		return
	}
	fmt.Fprintf(c.out, prefix+msg+"\n", args...)
}

// SilentLogger discards all log messages.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// StructuredLogger writes leveled logs through logrus.
// Used by the MCP server, where stdout carries the protocol.
type StructuredLogger struct {
	entry *logrus.Entry
}

// NewStructuredLogger creates a logrus-backed logger writing to out.
// format is "json" or "text"; level is any logrus level name.
func NewStructuredLogger(out io.Writer, level, format string) (*StructuredLogger, error) {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return &StructuredLogger{entry: logrus.NewEntry(l)}, nil
}

// WithField returns a logger that adds key=value to every entry.
func (s *StructuredLogger) WithField(key string, value interface{}) *StructuredLogger {
	return &StructuredLogger{entry: s.entry.WithField(key, value)}
}

func (s *StructuredLogger) Info(msg string, args ...interface{}) {
	s.entry.Infof(msg, args...)
}

func (s *StructuredLogger) Error(msg string, args ...interface{}) {
	s.entry.Errorf(msg, args...)
}

func (s *StructuredLogger) Debug(msg string, args ...interface{}) {
	s.entry.Debugf(msg, args...)
}
