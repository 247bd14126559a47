// Package txlog provides the engine's ambient debug logger.
//
// The engine's C++ source reports state transitions through a
// TX_FLASH_DEBUG macro that compiles to nothing unless the embedded build
// defines it. This module's host language has no such facility, and the
// rest of the example corpus settles on github.com/sirupsen/logrus (with a
// prefixed text formatter for human-readable terminal output) as the
// ambient choice for exactly this kind of single-line diagnostic — see
// util/logger/logger.go in the go-dbms example this was grounded on.
package txlog

import (
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// base is the package-level logger every Engine falls back to when
// constructed with a nil *logrus.Entry.
var base = &logrus.Logger{
	Out:   os.Stderr,
	Level: logrus.InfoLevel,
	Formatter: &prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	},
}

// Default returns a fresh entry on the package logger, scoped with the
// "txflash" component field.
func Default() *logrus.Entry {
	return base.WithField("component", "txflash")
}

// SetLevel adjusts the package logger's level. cmd/txctl uses this to
// enable Debug output; production embedders that pass their own
// *logrus.Entry to engine.New are unaffected.
func SetLevel(level logrus.Level) {
	base.Level = level
}
