// Package logrec defines the JSON representations of captured log records.
package logrec

import (
	"github.com/avoronov/ringlog/internal/ring"
	"github.com/avoronov/ringlog/internal/severity"
)

// Event is a record as submitted by a producer. Level may be a name
// such as "warning"; empty Detail and Hint are treated as absent.
type Event struct {
	Level   string `json:"level"`
	Errno   int32  `json:"errno,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Record is a record as returned by a drain. Position is the buffer
// offset the frame was read from.
type Record struct {
	Level     int32   `json:"level"`
	LevelName string  `json:"level_name"`
	Errno     int32   `json:"errno"`
	Message   string  `json:"message"`
	Detail    *string `json:"detail,omitempty"`
	Hint      *string `json:"hint,omitempty"`
	Position  uint32  `json:"position"`
}

// ToRing converts a submitted event into a buffer record.
func (e Event) ToRing() (ring.Record, error) {
	code, err := severity.Code(e.Level)
	if err != nil {
		return ring.Record{}, err
	}
	return ring.Record{
		Level:     code,
		Errno:     e.Errno,
		Message:   e.Message,
		Detail:    e.Detail,
		Hint:      e.Hint,
		HasDetail: e.Detail != "",
		HasHint:   e.Hint != "",
	}, nil
}

// FromRing converts a drained buffer record at the given offset.
func FromRing(rec ring.Record, pos uint32) Record {
	name, err := severity.Name(rec.Level)
	if err != nil {
		name = "unknown"
	}
	out := Record{
		Level:     rec.Level,
		LevelName: name,
		Errno:     rec.Errno,
		Message:   rec.Message,
		Position:  pos,
	}
	if rec.HasDetail {
		d := rec.Detail
		out.Detail = &d
	}
	if rec.HasHint {
		h := rec.Hint
		out.Hint = &h
	}
	return out
}
