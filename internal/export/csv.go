package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/avoronov/ringlog/internal/logrec"
)

type csvWriter struct {
	file *os.File
	w    *csv.Writer
}

func newCSVWriter(path string) (*csvWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"position", "level", "errno", "message", "detail", "hint"}); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &csvWriter{file: f, w: w}, nil
}

func (w *csvWriter) Write(rec logrec.Record) error {
	var detail, hint string
	if rec.Detail != nil {
		detail = *rec.Detail
	}
	if rec.Hint != nil {
		hint = *rec.Hint
	}
	return w.w.Write([]string{
		strconv.FormatUint(uint64(rec.Position), 10),
		rec.LevelName,
		strconv.FormatInt(int64(rec.Errno), 10),
		rec.Message,
		detail,
		hint,
	})
}

func (w *csvWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
