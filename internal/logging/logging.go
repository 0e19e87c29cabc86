// Package logging builds the logfmt loggers used by the CLI and renderer.
package logging

import (
	"io"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// New returns a logfmt logger writing to w. Debug records are dropped
// unless verbose is set.
func New(w io.Writer, verbose bool) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

func Nop() kitlog.Logger { return kitlog.NewNopLogger() }

// Subsystem tags every record from logger with subsys=name.
func Subsystem(logger kitlog.Logger, name string) kitlog.Logger {
	return kitlog.With(logger, "subsys", name)
}
