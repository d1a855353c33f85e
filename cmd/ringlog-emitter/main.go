package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avoronov/ringlog/internal/logrec"
	"github.com/avoronov/ringlog/internal/push"
)

const (
	batchSize     = 100
	flushInterval = 500 * time.Millisecond
)

// eventPusher sends a batch of events to a collector.
type eventPusher interface {
	Push(ctx context.Context, events []logrec.Event) error
}

func main() {
	target := mustEnv("RINGLOG_TARGET")
	defaultLevel := os.Getenv("RINGLOG_LEVEL")
	if defaultLevel == "" {
		defaultLevel = "log"
	}

	fmt.Fprintf(os.Stderr, "ringlog-emitter starting: target=%s level=%s\n", target, defaultLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received %s, shutting down\n", sig)
		cancel()
	}()

	reader := push.NewReader(os.Stdin)
	reader.DefaultLevel = defaultLevel

	pusher := push.NewPusher(target)

	sent, dropped := run(ctx, reader, pusher, os.Stderr)
	fmt.Fprintf(os.Stderr, "done: %d events sent, %d dropped\n", sent, dropped)
}

// run reads events until EOF or cancellation, pushing them in batches.
func run(ctx context.Context, reader *push.Reader, pusher eventPusher, errOut io.Writer) (sent, dropped int64) {
	evCh := make(chan logrec.Event, 1024)
	go func() {
		defer close(evCh)
		for {
			ev, err := reader.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					fmt.Fprintf(errOut, "read error: %v\n", err)
				}
				return
			}
			select {
			case evCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	batch := make([]logrec.Event, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := pusher.Push(ctx, batch); err != nil {
			if errors.Is(err, push.ErrPayloadExceeded) {
				fmt.Fprintf(errOut, "batch too large, dropping %d events\n", len(batch))
			} else if ctx.Err() == nil {
				fmt.Fprintf(errOut, "push error: %v\n", err)
			}
			dropped += int64(len(batch))
		} else {
			sent += int64(len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-evCh:
			if !ok {
				flush()
				return sent, dropped
			}
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return sent, dropped
		}
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "required env var %s not set\n", key)
		os.Exit(1)
	}
	return v
}
