// Package logutil constructs the process-wide go-kit logger. No package
// holds a package-level logger; every component constructor takes one
// explicitly.
package logutil

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New builds a leveled, timestamped logfmt logger writing to stderr.
// levelName is one of "debug", "info", "warn", "error"; unrecognized
// values fall back to "info".
func New(levelName string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var lvl level.Option
	switch levelName {
	case "debug":
		lvl = level.AllowDebug()
	case "warn":
		lvl = level.AllowWarn()
	case "error":
		lvl = level.AllowError()
	default:
		lvl = level.AllowInfo()
	}
	return level.NewFilter(logger, lvl)
}
