package ring

// Pure position arithmetic over a fixed-capacity circular byte region.
// Both the append and drain paths use the same functions so they agree
// on where a frame's bytes physically live.

// split returns the chunk lengths for a region of n bytes starting at off
// in a buffer of the given size. second is 0 when the region is contiguous;
// otherwise the region occupies [off, size) followed by [0, second).
func split(off, n, size uint32) (first, second uint32) {
	if off+n <= size {
		return n, 0
	}
	first = size - off
	return first, n - first
}

// advance moves off forward by n modulo size. crossed reports whether the
// cursor passed or landed exactly on the physical end of the buffer.
func advance(off, n, size uint32) (pos uint32, crossed bool) {
	pos = off + n
	if pos >= size {
		return pos - size, true
	}
	return pos, false
}
