package forward

import (
	"testing"

	"github.com/avoronov/ringlog/internal/logrec"
)

func batchWithMessage(msg string, size int) Batch {
	return Batch{Records: []logrec.Record{{Message: msg}}, Size: size}
}

func TestBuffer_AddAndDrain(t *testing.T) {
	buf := NewBuffer(1024)

	buf.Add(batchWithMessage("a", 100))
	buf.Add(batchWithMessage("b", 200))
	buf.Add(batchWithMessage("c", 300))

	if buf.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", buf.Len())
	}
	if buf.Size() != 600 {
		t.Fatalf("Size() = %d, want 600", buf.Size())
	}

	drained := buf.Drain()
	if len(drained) != 3 {
		t.Fatalf("drained %d batches, want 3", len(drained))
	}
	if drained[0].Records[0].Message != "a" {
		t.Error("expected FIFO order, first batch mismatch")
	}
	if drained[2].Records[0].Message != "c" {
		t.Error("expected FIFO order, last batch mismatch")
	}

	if buf.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", buf.Len())
	}
	if buf.Size() != 0 {
		t.Errorf("Size() after drain = %d, want 0", buf.Size())
	}
}

func TestBuffer_Overflow(t *testing.T) {
	buf := NewBuffer(500)

	buf.Add(batchWithMessage("a", 200))
	buf.Add(batchWithMessage("b", 200))

	if buf.Drops() != 0 {
		t.Fatalf("drops = %d, want 0", buf.Drops())
	}

	// this should evict the first batch (200 + 200 + 200 = 600 > 500)
	buf.Add(batchWithMessage("c", 200))

	if buf.Drops() != 1 {
		t.Fatalf("drops = %d, want 1", buf.Drops())
	}
	if buf.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", buf.Len())
	}

	drained := buf.Drain()
	if drained[0].Records[0].Message != "b" {
		t.Error("expected oldest (a) to be evicted, but first is not b")
	}
	if drained[1].Records[0].Message != "c" {
		t.Error("expected c to be second")
	}
}

func TestBuffer_DrainEmpty(t *testing.T) {
	buf := NewBuffer(1024)
	drained := buf.Drain()
	if drained != nil {
		t.Errorf("expected nil for empty drain, got %d batches", len(drained))
	}
}

func TestBuffer_SingleLargeBatch(t *testing.T) {
	buf := NewBuffer(100)

	// add a small batch first
	buf.Add(batchWithMessage("small", 50))

	// a batch larger than cap evicts everything and is still added
	buf.Add(batchWithMessage("large", 200))

	if buf.Drops() != 1 {
		t.Fatalf("drops = %d, want 1 (small batch evicted)", buf.Drops())
	}
	if buf.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", buf.Len())
	}

	drained := buf.Drain()
	if drained[0].Records[0].Message != "large" {
		t.Error("expected the large batch to be kept")
	}
}

func TestBuffer_SizeTracking(t *testing.T) {
	buf := NewBuffer(1000)

	buf.Add(Batch{Size: 100})
	buf.Add(Batch{Size: 200})
	if buf.Size() != 300 {
		t.Errorf("Size() = %d, want 300", buf.Size())
	}

	buf.Drain()
	if buf.Size() != 0 {
		t.Errorf("Size() after drain = %d, want 0", buf.Size())
	}
}

func TestEstimateBatchSize(t *testing.T) {
	detail := "ctx"
	recs := []logrec.Record{
		{LevelName: "error", Message: "hello world", Detail: &detail},
		{LevelName: "info", Message: "another line"},
	}

	size := EstimateBatchSize(recs)
	// first: 11 + 5 + 32 + 3 = 51; second: 12 + 4 + 32 = 48; total 99
	if size != 99 {
		t.Errorf("EstimateBatchSize = %d, want 99", size)
	}
}
