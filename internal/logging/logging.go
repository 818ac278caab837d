// Package logging configures the process logger.
package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Format names a log output format.
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

// New returns a logger writing to w at the given level and format.
func New(w io.Writer, level string, format Format) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)

	switch format {
	case JSONFormat:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case TextFormat, "":
		logger.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return logger, nil
}

// Component returns a logger entry tagged with a component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
