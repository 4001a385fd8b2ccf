// Package logging provides the package-level logger shared by every stage
// of the reconstruction engine.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the logger used throughout the engine. The engine logs a rejected
// plan at Error, the pipeline runner logs a stage's fatal error at Error,
// and recoverable anomalies (malformed angle files, ignored ROIs) are
// logged at Warn.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
	With().
	Timestamp().
	Caller().
	Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
