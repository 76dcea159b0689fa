// Package logger sets up the process-wide logrus logger. Log output goes to
// stderr; stdout carries command output only.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

// Init configures the global logger. Unknown levels fall back to info with a
// warning; format is "json" or anything else for text.
func Init(level, format string) *logrus.Logger {
	return InitWithOutput(level, format, os.Stderr)
}

// InitWithOutput is Init writing to w.
func InitWithOutput(level, format string, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)

	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
		l.WithField("invalid_level", level).Warn("Invalid log level, using info")
	}

	log = l
	return l
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *logrus.Logger {
	if log == nil {
		return Init("info", "text")
	}
	return log
}

// WithCommand returns an entry tagged with the running subcommand.
func WithCommand(name string) *logrus.Entry {
	return Get().WithField("command", name)
}
