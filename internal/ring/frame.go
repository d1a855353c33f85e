package ring

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame layout (28-byte little-endian header, variable payload):
//
//	uint32 magic      // frameMagic, detects corruption or a desynced cursor
//	uint32 totallen   // header + payload length in bytes
//	int32  errno      // errno captured at the emit site
//	int32  level      // severity code
//	uint32 msglen     // message byte count, always > 0
//	uint32 detaillen  // detail byte count, 0 means absent
//	uint32 hintlen    // hint byte count, 0 means absent
//
// Payload is message, detail, hint concatenated with no separators and no
// NUL terminators; the length fields are authoritative.
const (
	frameMagic      = 0x06054AB5
	frameHeaderSize = 28
)

// FrameOverhead is the fixed framing cost per record, in bytes. Callers
// sizing payloads against Buffer.Capacity must budget for it twice: once
// for the header itself and once because a frame may never occupy the
// final header-sized stretch of the buffer.
const FrameOverhead = frameHeaderSize

// FrameSize returns the encoded size of rec in bytes.
func FrameSize(rec Record) int {
	return frameLen(rec)
}

// ErrBadFrame signals a magic mismatch or an impossible length field during
// decode: the buffer is corrupt or the read cursor is desynchronized.
var ErrBadFrame = errors.New("bad frame")

// Record is one collected log event.
type Record struct {
	Level   int32
	Errno   int32
	Message string
	Detail  string
	Hint    string

	// The frame cannot represent an empty-but-present detail or hint
	// (a zero length field means absent), so presence is explicit.
	HasDetail bool
	HasHint   bool
}

// frameLen returns the encoded size of rec in bytes.
func frameLen(rec Record) int {
	n := frameHeaderSize + len(rec.Message)
	if rec.HasDetail {
		n += len(rec.Detail)
	}
	if rec.HasHint {
		n += len(rec.Hint)
	}
	return n
}

// encodeFrame serializes rec into a self-describing byte frame.
func encodeFrame(rec Record) []byte {
	var detail, hint string
	if rec.HasDetail {
		detail = rec.Detail
	}
	if rec.HasHint {
		hint = rec.Hint
	}

	total := frameHeaderSize + len(rec.Message) + len(detail) + len(hint)
	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[0:4], frameMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(total))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(rec.Errno))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(rec.Level))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(rec.Message)))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(detail)))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(hint)))

	p := buf[frameHeaderSize:]
	p = p[copy(p, rec.Message):]
	p = p[copy(p, detail):]
	copy(p, hint)

	return buf
}

// decodeFrame reconstructs a Record from a complete frame. When check is
// true the magic marker is validated; length consistency is always
// validated because the payload slicing depends on it.
func decodeFrame(buf []byte, check bool) (Record, error) {
	if len(buf) < frameHeaderSize {
		return Record{}, fmt.Errorf("%w: %d bytes is shorter than a header", ErrBadFrame, len(buf))
	}

	if check {
		if m := binary.LittleEndian.Uint32(buf[0:4]); m != frameMagic {
			return Record{}, fmt.Errorf("%w: magic %#08x", ErrBadFrame, m)
		}
	}

	total := binary.LittleEndian.Uint32(buf[4:8])
	msgLen := binary.LittleEndian.Uint32(buf[16:20])
	detailLen := binary.LittleEndian.Uint32(buf[20:24])
	hintLen := binary.LittleEndian.Uint32(buf[24:28])

	if uint64(total) != frameHeaderSize+uint64(msgLen)+uint64(detailLen)+uint64(hintLen) ||
		total != uint32(len(buf)) {
		return Record{}, fmt.Errorf("%w: inconsistent lengths (total=%d msg=%d detail=%d hint=%d)",
			ErrBadFrame, total, msgLen, detailLen, hintLen)
	}

	rec := Record{
		Errno: int32(binary.LittleEndian.Uint32(buf[8:12])),
		Level: int32(binary.LittleEndian.Uint32(buf[12:16])),
	}

	p := buf[frameHeaderSize:]
	rec.Message = string(p[:msgLen])
	p = p[msgLen:]
	if detailLen > 0 {
		rec.Detail = string(p[:detailLen])
		rec.HasDetail = true
		p = p[detailLen:]
	}
	if hintLen > 0 {
		rec.Hint = string(p[:hintLen])
		rec.HasHint = true
	}

	return rec, nil
}

// peekTotalLen reads the totallen field from a frame header without
// decoding the rest. The header must already be known complete.
func peekTotalLen(hdr []byte) uint32 {
	return binary.LittleEndian.Uint32(hdr[4:8])
}

// peekMagicOK reports whether the header carries the expected magic marker.
func peekMagicOK(hdr []byte) bool {
	return binary.LittleEndian.Uint32(hdr[0:4]) == frameMagic
}
