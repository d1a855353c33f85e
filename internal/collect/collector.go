// Package collect layers capture policy on top of the shared ring buffer:
// severity filtering, oversize truncation, and counters.
package collect

import (
	"errors"
	"fmt"
	"time"

	"github.com/avoronov/ringlog/internal/logrec"
	"github.com/avoronov/ringlog/internal/ring"
	"github.com/avoronov/ringlog/internal/severity"
)

// ErrBelowMinLevel is returned by Capture for records filtered out by the
// configured minimum severity.
var ErrBelowMinLevel = errors.New("record below minimum capture level")

// Collector owns a ring buffer and applies capture policy to it.
type Collector struct {
	buf      *ring.Buffer
	minLevel int32
	metrics  *Metrics
	stats    *Stats
}

// New creates a collector over buf. Records below minLevel are rejected.
// metrics may be nil when Prometheus registration is not wanted.
func New(buf *ring.Buffer, minLevel int32, metrics *Metrics) *Collector {
	return &Collector{
		buf:      buf,
		minLevel: minLevel,
		metrics:  metrics,
		stats:    NewStats(),
	}
}

// Buffer exposes the underlying ring buffer.
func (c *Collector) Buffer() *ring.Buffer { return c.buf }

// Stats exposes the collector's counters.
func (c *Collector) Stats() *Stats { return c.stats }

// Capture validates ev and appends it to the buffer. Records that would
// not fit even in an empty buffer are shrunk: hint dropped first, then
// detail, then the message truncated. The caller learns nothing about
// truncation from the return value; the counters record it.
func (c *Collector) Capture(ev logrec.Event) error {
	start := time.Now()

	rec, err := ev.ToRing()
	if err != nil {
		c.reject()
		return err
	}
	if rec.Message == "" {
		c.reject()
		return errors.New("record has an empty message")
	}
	if rec.Level < c.minLevel {
		c.reject()
		return fmt.Errorf("%w: %d < %d", ErrBelowMinLevel, rec.Level, c.minLevel)
	}

	rec, truncated := c.fit(rec)
	if err := c.buf.Append(rec); err != nil {
		c.reject()
		return err
	}

	c.stats.RecordCapture(rec.Level)
	if truncated {
		c.stats.Truncated.Add(1)
	}
	if c.metrics != nil {
		c.metrics.RecordsCaptured.Inc()
		if truncated {
			c.metrics.RecordsTruncated.Inc()
		}
		c.metrics.CaptureDuration.Observe(time.Since(start).Seconds())
		c.metrics.BufferUsedBytes.Set(float64(c.buf.PendingBytes()))
	}
	return nil
}

// fit shrinks rec until its frame can be stored, largest field first.
func (c *Collector) fit(rec ring.Record) (ring.Record, bool) {
	max := c.buf.Capacity() - 2*ring.FrameOverhead
	if ring.FrameSize(rec) <= max+ring.FrameOverhead {
		return rec, false
	}

	rec.Hint, rec.HasHint = "", false
	if ring.FrameSize(rec) <= max+ring.FrameOverhead {
		return rec, true
	}
	rec.Detail, rec.HasDetail = "", false
	if ring.FrameSize(rec) <= max+ring.FrameOverhead {
		return rec, true
	}
	rec.Message = rec.Message[:max]
	return rec, true
}

// DrainAll consumes every pending record and returns them oldest first.
func (c *Collector) DrainAll() ([]logrec.Record, error) {
	d := c.buf.Drain()
	defer d.Close()

	var out []logrec.Record
	for d.Next() {
		out = append(out, logrec.FromRing(d.Record(), d.Offset()))
	}
	if err := d.Err(); err != nil {
		return out, err
	}

	c.stats.Drains.Add(1)
	c.stats.Drained.Add(int64(len(out)))
	if c.metrics != nil {
		c.metrics.DrainsTotal.Inc()
		c.metrics.RecordsDrained.Add(float64(len(out)))
		c.metrics.BufferUsedBytes.Set(0)
	}
	return out, nil
}

// Reset discards all pending records.
func (c *Collector) Reset() {
	c.buf.Reset()
	c.stats.Resets.Add(1)
	if c.metrics != nil {
		c.metrics.ResetsTotal.Inc()
		c.metrics.BufferUsedBytes.Set(0)
	}
}

// Status is a point-in-time view of the buffer and counters.
type Status struct {
	CapacityBytes int      `json:"capacity_bytes"`
	UsedBytes     int      `json:"used_bytes"`
	MinLevel      string   `json:"min_level"`
	Counters      Snapshot `json:"counters"`
}

// Status reports the current buffer occupancy and counters.
func (c *Collector) Status() Status {
	name, err := severity.Name(c.minLevel)
	if err != nil {
		name = "unknown"
	}
	return Status{
		CapacityBytes: c.buf.Capacity(),
		UsedBytes:     c.buf.PendingBytes(),
		MinLevel:      name,
		Counters:      c.stats.Snapshot(),
	}
}

func (c *Collector) reject() {
	c.stats.Rejected.Add(1)
	if c.metrics != nil {
		c.metrics.RecordsRejected.Inc()
	}
}
