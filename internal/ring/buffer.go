// Package ring implements a fixed-size circular byte buffer shared between
// lock-free producers and a lock-serialized consumer, holding framed log
// records. When producers outpace the consumer the oldest undrained records
// are silently overwritten; the buffer never blocks an appender.
package ring

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

const defaultCapacity = 1 << 20 // 1MB

// ErrTooLarge reports a record whose frame cannot fit the configured
// capacity even on its own. It is returned before any shared state changes.
var ErrTooLarge = errors.New("record frame exceeds buffer capacity")

// Config holds buffer creation parameters, fixed for the buffer's lifetime.
type Config struct {
	// Capacity is the backing storage size in bytes. 0 means 1MB.
	Capacity int

	// CheckIntegrity enables magic-marker validation during drain.
	CheckIntegrity bool
}

// Buffer is the shared circular region. Append is safe to call from
// arbitrarily many goroutines concurrently with one another and with a
// running Drain or Reset; Drain and Reset serialize on the header lock.
type Buffer struct {
	mu      sync.Mutex    // serializes drain, reset, and overwrite fixup
	end     atomic.Uint32 // write cursor, offset in [0, size)
	readpos atomic.Uint32 // read cursor, offset in [0, size)
	wrapped atomic.Bool   // pending region spans the physical end

	size  uint32
	data  []byte
	check bool
}

// New creates a buffer with the given configuration.
func New(cfg Config) (*Buffer, error) {
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = defaultCapacity
	}
	if capacity < 4*frameHeaderSize {
		return nil, fmt.Errorf("capacity %d is below the %d byte minimum", capacity, 4*frameHeaderSize)
	}
	// Cursors are uint32 offsets; a larger capacity would truncate to a
	// zero size with a full-length backing slice behind it.
	if uint64(capacity) > math.MaxUint32 {
		return nil, fmt.Errorf("capacity %d exceeds the %d byte maximum", capacity, uint32(math.MaxUint32))
	}
	return &Buffer{
		size:  uint32(capacity),
		data:  make([]byte, capacity),
		check: cfg.CheckIntegrity,
	}, nil
}

// Capacity returns the backing storage size in bytes.
func (b *Buffer) Capacity() int { return int(b.size) }

// PendingBytes returns the approximate number of written but undrained
// bytes. It reads the cursors without the lock, so the value is advisory.
func (b *Buffer) PendingBytes() int {
	rp := b.readpos.Load()
	end := b.end.Load()
	pend := (end - rp + b.size) % b.size
	if pend == 0 && b.wrapped.Load() {
		pend = b.size
	}
	return int(pend)
}

// Append encodes rec and places the frame into the buffer. The destination
// region is reserved with a compare-and-swap loop on the write cursor, so
// concurrent appenders never block one another. The header lock is taken
// only when the reservation overwrites undrained data.
//
// Overwritten records are lost silently; that is the overwrite-on-full
// policy, not an error.
func (b *Buffer) Append(rec Record) error {
	frame := encodeFrame(rec)
	n := uint32(len(frame))
	if n > b.size-frameHeaderSize {
		return fmt.Errorf("%w: frame %d bytes, capacity %d", ErrTooLarge, n, b.size)
	}

	var start, oldEnd, newEnd, resLen uint32
	var crossed, wrappedBefore bool
	for {
		oldEnd = b.end.Load()
		wrappedBefore = b.wrapped.Load()

		// A frame header never straddles the physical end. If the tail
		// cannot hold a header the reservation covers it as padding and
		// the frame itself starts at offset 0.
		start, resLen = oldEnd, n
		if oldEnd+frameHeaderSize > b.size {
			start = 0
			resLen = b.size - oldEnd + n
		}

		var pos uint32
		pos, crossed = advance(oldEnd, resLen, b.size)
		if b.end.CompareAndSwap(oldEnd, pos) {
			newEnd = pos
			break
		}
	}

	if crossed {
		b.wrapped.Store(true)
	}
	b.reclaim(oldEnd, newEnd, start, resLen, wrappedBefore)

	first, second := split(start, n, b.size)
	copy(b.data[start:start+first], frame[:first])
	if second > 0 {
		copy(b.data[:second], frame[first:])
	}
	return nil
}

// reclaim advances the read cursor past every pending frame the reservation
// [oldEnd, oldEnd+resLen) destroys. The common append path skips it with a
// single lock-free check; only an actual overwrite takes the header lock,
// which keeps the fixup mutually exclusive with a running drain.
func (b *Buffer) reclaim(oldEnd, newEnd, resStart, resLen uint32, wrappedBefore bool) {
	if resLen <= b.freeBytes(oldEnd, wrappedBefore) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	free := b.freeBytes(oldEnd, wrappedBefore)
	if resLen <= free {
		return
	}
	need := int64(resLen - free)

	rp := b.readpos.Load()
	for need > 0 {
		if rp+frameHeaderSize > b.size {
			need -= int64(b.size - rp)
			rp = 0
			continue
		}
		hdr := b.data[rp : rp+frameHeaderSize]
		total := peekTotalLen(hdr)
		if !peekMagicOK(hdr) || total < frameHeaderSize || total > b.size-frameHeaderSize {
			// The cursor landed on garbage, likely after losing a race
			// with another appender. Give up on the old pending region
			// and keep only the frame being written.
			b.readpos.Store(resStart)
			b.wrapped.Store(resStart >= newEnd)
			return
		}
		rp, _ = advance(rp, total, b.size)
		need -= int64(total)
	}

	b.readpos.Store(rp)
	b.wrapped.Store(rp >= newEnd)
}

// freeBytes returns the writable space ahead of the write cursor position
// end, given whether the region was known wrapped beforehand (which
// disambiguates equal cursors: empty versus completely full).
func (b *Buffer) freeBytes(end uint32, wrapped bool) uint32 {
	pend := (end - b.readpos.Load() + b.size) % b.size
	if pend == 0 && wrapped {
		pend = b.size
	}
	return b.size - pend
}

// Reset discards all pending records without reading them. It is safe to
// call concurrently with Append: a producer that reserved against the old
// write cursor simply loses its race and retries against 0.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.end.Load()
	for !b.end.CompareAndSwap(cur, 0) {
		cur = b.end.Load()
	}
	b.readpos.Store(0)
	b.wrapped.Store(false)
}
