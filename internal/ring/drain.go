package ring

import "fmt"

// Drain iterates the records pending at the moment the drain began, oldest
// first, in the style of sql.Rows:
//
//	d := buf.Drain()
//	defer d.Close()
//	for d.Next() {
//		rec := d.Record()
//	}
//	if err := d.Err(); err != nil { ... }
//
// The header lock is held from Drain until Close (or exhaustion), so drains
// serialize with one another and with Reset, but never with Append. The
// sequence is not restartable: the read cursor only moves forward, and no
// record is ever emitted twice.
type Drain struct {
	b       *Buffer
	until   uint32 // write cursor snapshot taken under the lock
	wrapped bool   // remaining pending region still spans the physical end
	rec     Record
	off     uint32
	err     error
	closed  bool
}

// Drain locks the buffer header and returns an iterator over everything
// pending up to the current write cursor.
func (b *Buffer) Drain() *Drain {
	b.mu.Lock()
	return b.newDrain(b.end.Load(), b.wrapped.Load())
}

// newDrain builds the iterator from a write cursor and wraparound flag
// snapshot, reconciling the fields against each other. The lock keeps the
// read cursor still, but Append is lock-free: a reservation can cross the
// physical end between the two loads, pairing a pre-cross cursor with a
// post-cross flag. A pending region that truly spans the end implies
// readpos >= until, so when readpos < until the flag belongs to a frame
// reserved after the cursor snapshot; drop it and leave that frame pending
// for the next drain.
func (b *Buffer) newDrain(until uint32, wrapped bool) *Drain {
	if wrapped && b.readpos.Load() < until {
		wrapped = false
	}
	return &Drain{
		b:       b,
		until:   until,
		wrapped: wrapped,
	}
}

// Next advances to the next record. It returns false when the snapshot is
// exhausted or a framing error occurred; the lock is released either way.
func (d *Drain) Next() bool {
	if d.closed {
		return false
	}
	b := d.b

	for {
		rp := b.readpos.Load()
		if !d.wrapped && rp >= d.until {
			d.release()
			return false
		}

		// Tail too small for a frame header: the writer treated it as
		// padding, skip it without yielding a record.
		if rp+frameHeaderSize > b.size {
			b.readpos.Store(0)
			d.wrapped = false
			b.wrapped.Store(false)
			continue
		}

		hdr := b.data[rp : rp+frameHeaderSize]
		if b.check && !peekMagicOK(hdr) {
			d.fail(fmt.Errorf("frame at offset %d: %w: magic mismatch", rp, ErrBadFrame))
			return false
		}
		total := peekTotalLen(hdr)
		if total < frameHeaderSize || total > b.size-frameHeaderSize {
			d.fail(fmt.Errorf("frame at offset %d: %w: totallen %d", rp, ErrBadFrame, total))
			return false
		}

		frame := make([]byte, total)
		first, second := split(rp, total, b.size)
		copy(frame, b.data[rp:rp+first])
		if second > 0 {
			copy(frame[first:], b.data[:second])
		}

		rec, err := decodeFrame(frame, b.check)
		if err != nil {
			d.fail(fmt.Errorf("frame at offset %d: %w", rp, err))
			return false
		}

		pos, crossed := advance(rp, total, b.size)
		b.readpos.Store(pos)
		if crossed {
			d.wrapped = false
			b.wrapped.Store(false)
		}

		d.rec = rec
		d.off = rp
		return true
	}
}

// Record returns the record produced by the last successful Next.
func (d *Drain) Record() Record { return d.rec }

// Offset returns the buffer offset at which the last record's frame began,
// a stable position for external reference.
func (d *Drain) Offset() uint32 { return d.off }

// Err returns the framing error that terminated the drain, if any.
func (d *Drain) Err() error { return d.err }

// Close releases the buffer header lock. It is idempotent and safe to call
// whether or not the drain was exhausted.
func (d *Drain) Close() error {
	d.release()
	return nil
}

func (d *Drain) fail(err error) {
	d.err = err
	d.release()
}

func (d *Drain) release() {
	if !d.closed {
		d.closed = true
		d.b.mu.Unlock()
	}
}
