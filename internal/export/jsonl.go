package export

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/avoronov/ringlog/internal/logrec"
)

type jsonlWriter struct {
	file *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
	enc  *json.Encoder
}

func newJSONLWriter(path string, compress bool) (*jsonlWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	var sink io.Writer = f
	var zw *zstd.Encoder
	if compress {
		zw, err = zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		sink = zw
	}

	buf := bufio.NewWriter(sink)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	return &jsonlWriter{file: f, zw: zw, buf: buf, enc: enc}, nil
}

func (w *jsonlWriter) Write(rec logrec.Record) error {
	return w.enc.Encode(rec)
}

func (w *jsonlWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			_ = w.file.Close()
			return err
		}
	}
	return w.file.Close()
}
