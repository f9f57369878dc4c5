// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Setup applies output, format and level to the standard logger.
// An unknown level falls back to info.
func Setup(w io.Writer, level string, json bool) {
	logrus.SetOutput(w)

	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

// OrStandard returns l, or the standard logger when l is nil.
func OrStandard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}
