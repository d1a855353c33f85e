// Package export writes drained log records to files in several formats.
package export

import (
	"fmt"

	"github.com/avoronov/ringlog/internal/logrec"
)

// Format identifies the output format.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
)

// Options controls export behavior.
type Options struct {
	// Compress wraps JSONL output in a zstd stream. Parquet output is
	// always zstd-compressed internally; CSV ignores this.
	Compress bool
}

// Writer writes log records to an output format.
type Writer interface {
	Write(logrec.Record) error
	Close() error
}

// Export writes recs to dst in the given format.
func Export(dst string, format Format, opts Options, recs []logrec.Record) error {
	w, err := NewWriter(dst, format, opts)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}

	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			_ = w.Close()
			return fmt.Errorf("write record at position %d: %w", rec.Position, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// NewWriter creates a format writer targeting path.
func NewWriter(path string, format Format, opts Options) (Writer, error) {
	switch format {
	case FormatParquet:
		return newParquetWriter(path)
	case FormatCSV:
		return newCSVWriter(path)
	case FormatJSONL:
		return newJSONLWriter(path, opts.Compress)
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}
