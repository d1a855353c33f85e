package push

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestReaderJSONLines(t *testing.T) {
	input := `{"level":"error","errno":28,"message":"boom","detail":"ctx"}
{"level":"warning","message":"disk full","hint":"make room"}
`
	r := NewReader(strings.NewReader(input))
	ctx := context.Background()

	ev, err := r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Level != "error" || ev.Errno != 28 || ev.Message != "boom" || ev.Detail != "ctx" {
		t.Errorf("first event = %+v", ev)
	}

	ev, err = r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Level != "warning" || ev.Hint != "make room" {
		t.Errorf("second event = %+v", ev)
	}

	if _, err := r.Next(ctx); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestReaderPlainTextFallsBack(t *testing.T) {
	r := NewReader(strings.NewReader("plain text line\n"))
	ev, err := r.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Level != "log" || ev.Message != "plain text line" {
		t.Errorf("event = %+v", ev)
	}
}

func TestReaderDefaultLevel(t *testing.T) {
	input := `{"message":"no level here"}
broken json {
`
	r := NewReader(strings.NewReader(input))
	r.DefaultLevel = "notice"
	ctx := context.Background()

	ev, err := r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Level != "notice" || ev.Message != "no level here" {
		t.Errorf("first event = %+v", ev)
	}

	ev, err = r.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Level != "notice" || ev.Message != "broken json {" {
		t.Errorf("second event = %+v", ev)
	}
}

func TestReaderSkipsBlankLines(t *testing.T) {
	input := "\n\n{\"level\":\"info\",\"message\":\"after blanks\"}\n"
	r := NewReader(strings.NewReader(input))
	ev, err := r.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Message != "after blanks" {
		t.Errorf("event = %+v", ev)
	}
}

func TestReaderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(strings.NewReader("line\n"))
	if _, err := r.Next(ctx); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
