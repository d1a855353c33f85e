package forward

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avoronov/ringlog/internal/collect"
)

const defaultRetryBytes = 1 << 20 // 1MB

// Forwarder periodically drains the collector and publishes the records.
// Batches that fail to send are kept in a bounded retry buffer; when it
// overflows the oldest batches are dropped, matching the buffer's own
// overwrite-on-full policy.
type Forwarder struct {
	collector *collect.Collector
	sink      *Sink
	interval  time.Duration
	retry     *Buffer
	log       *zap.Logger
}

// New creates a forwarder draining collector into sink every interval.
func New(collector *collect.Collector, sink *Sink, interval time.Duration, log *zap.Logger) *Forwarder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Forwarder{
		collector: collector,
		sink:      sink,
		interval:  interval,
		retry:     NewBuffer(defaultRetryBytes),
		log:       log,
	}
}

// Retry exposes the retry buffer, for tests and status reporting.
func (f *Forwarder) Retry() *Buffer { return f.retry }

// Run drains and forwards until ctx is cancelled. A final drain runs on
// shutdown so records captured after the last tick are not stranded.
func (f *Forwarder) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.Tick()
			return
		case <-ticker.C:
			f.Tick()
		}
	}
}

// Tick performs one drain-and-send round: failed batches first, then
// whatever is pending in the buffer.
func (f *Forwarder) Tick() {
	for _, batch := range f.retry.Drain() {
		if err := f.sink.Send(batch.Records); err != nil {
			f.log.Warn("resend failed", zap.Int("records", len(batch.Records)), zap.Error(err))
			f.retry.Add(batch)
		}
	}

	recs, err := f.collector.DrainAll()
	if err != nil {
		f.log.Warn("drain failed", zap.Error(err))
	}
	if len(recs) == 0 {
		return
	}

	if err := f.sink.Send(recs); err != nil {
		f.log.Warn("send failed, buffering for retry",
			zap.Int("records", len(recs)),
			zap.Error(err),
		)
		f.retry.Add(Batch{Records: recs, Size: EstimateBatchSize(recs)})
	}
}
