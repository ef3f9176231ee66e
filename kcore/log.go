package kcore

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured-logging facade the scheduler and buffer cache
// accept through their WithLogger options, rather than writing to
// log.Printf directly. The logger is stored but no component emits log
// entries through it at present.
type Logger = *logiface.Logger[*stumpy.Event]

// NewDiscardLogger returns a Logger with logging disabled, used as the
// default when no Logger option is supplied.
func NewDiscardLogger() Logger {
	return stumpy.L.New(stumpy.L.WithLevel(logiface.LevelDisabled))
}
