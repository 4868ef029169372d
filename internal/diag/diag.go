// Package diag is wazir's diagnostic logging surface. It wraps a single
// package-level logrus.Logger (the idiom the retrieved corpus uses — see
// grafana-k6's cmd.Logger field and moby's pkg/log package), rather than
// threading a logger through every package — the executor's dispatch loop
// logs only on the cold trap/warn path, so a global is cheap and keeps the
// hot path free of a logger parameter.
package diag

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Log returns the package-level logger used throughout wazir. Callers chain
// WithField/WithFields off of it the way the retrieved corpus does
// (cmd.outputs_cloud.go's logger.WithFields(logrus.Fields{...})).
func Log() *logrus.Logger { return logger }

// SetLevel adjusts verbosity; wired from internal/config's RuntimeConfig.
func SetLevel(level logrus.Level) { logger.SetLevel(level) }

// SetOutput redirects where diagnostics are written — tests redirect this to
// a buffer rather than asserting against os.Stderr.
func SetOutput(w io.Writer) { logger.SetOutput(w) }
