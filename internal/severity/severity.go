// Package severity maps PostgreSQL error levels to their numeric codes.
package severity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLevel is wrapped by Code and Name for names or codes outside
// the table, so callers can match with errors.Is.
var ErrUnknownLevel = errors.New("unknown severity level")

// PostgreSQL elevel codes, from elog.h.
const (
	Debug5    = 10
	Debug4    = 11
	Debug3    = 12
	Debug2    = 13
	Debug1    = 14
	Log       = 15
	CommError = 16
	Info      = 17
	Notice    = 18
	Warning   = 19
	Error     = 20
	Fatal     = 21
	Panic     = 22
)

var names = map[int32]string{
	Debug5:    "debug5",
	Debug4:    "debug4",
	Debug3:    "debug3",
	Debug2:    "debug2",
	Debug1:    "debug1",
	Log:       "log",
	CommError: "commerror",
	Info:      "info",
	Notice:    "notice",
	Warning:   "warning",
	Error:     "error",
	Fatal:     "fatal",
	Panic:     "panic",
}

var codes = func() map[string]int32 {
	m := make(map[string]int32, len(names))
	for code, name := range names {
		m[name] = code
	}
	// "debug" is a common alias for the lowest debug level.
	m["debug"] = Debug1
	return m
}()

// Code returns the numeric level for a name such as "warning" or "DEBUG2".
func Code(name string) (int32, error) {
	code, ok := codes[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	return code, nil
}

// Name returns the canonical lowercase name for a numeric level.
func Name(code int32) (string, error) {
	name, ok := names[code]
	if !ok {
		return "", fmt.Errorf("%w: code %d", ErrUnknownLevel, code)
	}
	return name, nil
}

// Valid reports whether code is a known level.
func Valid(code int32) bool {
	_, ok := names[code]
	return ok
}
