package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"

	"github.com/avoronov/ringlog/internal/logrec"
)

func sampleRecords() []logrec.Record {
	detail := "no space left on device"
	hint := "make room"
	return []logrec.Record{
		{Level: 20, LevelName: "error", Errno: 28, Message: "boom", Detail: &detail, Position: 0},
		{Level: 19, LevelName: "warning", Message: "disk full", Hint: &hint, Position: 60},
		{Level: 17, LevelName: "info", Message: "retry ok", Position: 116},
		{Level: 21, LevelName: "fatal", Errno: 13, Message: "db down", Position: 152},
		{Level: 15, LevelName: "log", Message: "checkpoint complete", Position: 192},
	}
}

func TestExportJSONL(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := Export(out, FormatJSONL, Options{}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	var recs []logrec.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		var rec logrec.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON on line %d: %v", len(recs)+1, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 5 {
		t.Fatalf("JSONL lines = %d, want 5", len(recs))
	}
	if recs[0].Message != "boom" || recs[0].Detail == nil {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[2].Detail != nil || recs[2].Hint != nil {
		t.Errorf("third record should have no detail/hint: %+v", recs[2])
	}
}

func TestExportJSONLCompressed(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.jsonl.zst")

	if err := Export(out, FormatJSONL, Options{Compress: true}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var count int
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		var rec logrec.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON after decompression: %v", err)
		}
		count++
	}
	if count != 5 {
		t.Errorf("decompressed JSONL lines = %d, want 5", count)
	}
}

func TestExportCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := Export(out, FormatCSV, Options{}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// header + 5 rows
	if len(records) != 6 {
		t.Fatalf("CSV records = %d, want 6 (1 header + 5 data)", len(records))
	}
	if records[0][0] != "position" || records[0][1] != "level" || records[0][3] != "message" {
		t.Errorf("CSV header = %v", records[0])
	}
	if records[1][1] != "error" || records[1][2] != "28" || records[1][3] != "boom" {
		t.Errorf("first data row = %v", records[1])
	}
	// absent detail/hint come out as empty fields
	if records[3][4] != "" || records[3][5] != "" {
		t.Errorf("third data row = %v, want empty detail/hint", records[3])
	}
}

func TestExportParquet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.parquet")

	if err := Export(out, FormatParquet, Options{}, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	stat, _ := f.Stat()
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		t.Fatal(err)
	}
	if pf.NumRows() != 5 {
		t.Errorf("parquet rows = %d, want 5", pf.NumRows())
	}
}

func TestExportEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.jsonl")

	if err := Export(out, FormatJSONL, Options{}, nil); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("empty export file size = %d, want 0", info.Size())
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.xml")
	if err := Export(out, Format("xml"), Options{}, sampleRecords()); err == nil {
		t.Error("expected error for unsupported format")
	}
}
