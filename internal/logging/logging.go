// SPDX-License-Identifier: EPL-2.0

// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var pid = os.Getpid()

// Options select the logger output.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Console switches from JSON lines to the human readable writer.
	Console bool
	NoColor bool
	// Out defaults to os.Stderr.
	Out io.Writer
}

// New returns a logger stamped with time and pid.
func New(o Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(o.Level); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", o.Level, err)
		}
		level = l
	}

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.Console {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05.0000",
			NoColor:    o.NoColor,
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				"component",
				zerolog.MessageFieldName,
			},
			FieldsExclude: []string{"component", "pid"},
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(out).Level(level).With().Timestamp().Int("pid", pid).Logger(), nil
}
