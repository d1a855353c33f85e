package ring

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// Eight producers appending sixteen records each, with frame sizes chosen so
// the total exactly fills the buffer: one drain must recover every frame,
// distinct and intact.
func TestConcurrentProducersAllRecovered(t *testing.T) {
	const (
		producers = 8
		perProd   = 16
		frameSize = 64
	)
	b := newBuffer(t, producers*perProd*frameSize)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				rec := sizedMsg(frameSize, fmt.Sprintf("p%02d-%03d", p, i))
				if err := b.Append(rec); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	d := b.Drain()
	defer d.Close()
	for d.Next() {
		msg := d.Record().Message[:7]
		if seen[msg] {
			t.Fatalf("record %q drained twice", msg)
		}
		seen[msg] = true
	}
	if err := d.Err(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(seen) != producers*perProd {
		t.Fatalf("recovered %d records, want %d", len(seen), producers*perProd)
	}
	for p := 0; p < producers; p++ {
		for i := 0; i < perProd; i++ {
			if key := fmt.Sprintf("p%02d-%03d", p, i); !seen[key] {
				t.Fatalf("record %q missing", key)
			}
		}
	}
}

// Bursts of concurrent producers, with Reset racing the appenders, then a
// quiesced drain per round. Overwrites lose records under the overwrite
// policy, so the assertion is that everything drained decodes cleanly and
// the cursors stay coherent across rounds.
func TestOverproductionBurstsStayCoherent(t *testing.T) {
	b := newBuffer(t, 2048)

	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 40; i++ {
					_ = b.Append(sizedMsg(48, fmt.Sprintf("w%d-%04d", p, i)))
				}
			}(p)
		}
		if round%5 == 4 {
			// Reset is safe concurrently with Append: reserving producers
			// lose their race and retry against 0.
			b.Reset()
		}
		wg.Wait()

		d := b.Drain()
		for d.Next() {
			if msg := d.Record().Message; len(msg) != 48-frameHeaderSize {
				t.Fatalf("round %d: drained record with mangled message %q", round, msg)
			}
		}
		err := d.Err()
		d.Close()
		if errors.Is(err, ErrBadFrame) {
			// Producers lapping the read cursor mid-fixup can desync it;
			// the magic check catches it and a reset resynchronizes.
			b.Reset()
		} else if err != nil {
			t.Fatalf("round %d: drain: %v", round, err)
		}
	}

	if err := b.Append(sizedMsg(48, "final")); err != nil {
		t.Fatalf("append after stress: %v", err)
	}
	d := b.Drain()
	defer d.Close()
	if !d.Next() || d.Record().Message[:5] != "final" {
		t.Fatalf("final record not recovered: %v", d.Err())
	}
}

// sizedMsg builds a record with an exact frame size without needing a
// testing.T, for use inside goroutines.
func sizedMsg(frameSize int, tag string) Record {
	msg := tag
	for len(msg) < frameSize-frameHeaderSize {
		msg += "."
	}
	return Record{Level: 20, Message: msg}
}
