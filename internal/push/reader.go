package push

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/avoronov/ringlog/internal/logrec"
)

// Reader parses NDJSON log events from a stream, typically stdin of a
// process whose logs are being captured. Lines that are not valid JSON
// are wrapped as plain log-level events rather than dropped.
type Reader struct {
	scanner *bufio.Scanner

	// DefaultLevel is assigned to events with no level field and to
	// plain-text lines. Empty means "log".
	DefaultLevel string
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: sc}
}

// rawEvent mirrors the capture API event shape for decoding.
type rawEvent struct {
	Level   string `json:"level"`
	Errno   int32  `json:"errno"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Hint    string `json:"hint"`
}

// Next returns the next event from the stream. It returns io.EOF when the
// stream ends and ctx.Err() when the context is cancelled.
func (r *Reader) Next(ctx context.Context) (logrec.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return logrec.Event{}, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return logrec.Event{}, fmt.Errorf("read line: %w", err)
			}
			return logrec.Event{}, io.EOF
		}

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		return r.parse(line), nil
	}
}

func (r *Reader) parse(line string) logrec.Event {
	level := r.DefaultLevel
	if level == "" {
		level = "log"
	}

	if strings.HasPrefix(line, "{") {
		var raw rawEvent
		if err := json.Unmarshal([]byte(line), &raw); err == nil && raw.Message != "" {
			if raw.Level == "" {
				raw.Level = level
			}
			return logrec.Event{
				Level:   raw.Level,
				Errno:   raw.Errno,
				Message: raw.Message,
				Detail:  raw.Detail,
				Hint:    raw.Hint,
			}
		}
	}
	return logrec.Event{Level: level, Message: line}
}
