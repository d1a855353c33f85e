package export

import (
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/avoronov/ringlog/internal/logrec"
)

const parquetBatchSize = 50000

// parquetRecord is the Parquet schema struct.
type parquetRecord struct {
	Position uint32 `parquet:"position"`
	Level    int32  `parquet:"level"`
	Name     string `parquet:"level_name,dict"`
	Errno    int32  `parquet:"errno"`
	Message  string `parquet:"message"`
	Detail   string `parquet:"detail,optional"`
	Hint     string `parquet:"hint,optional"`
}

type parquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[parquetRecord]
	batch  []parquetRecord
}

func newParquetWriter(path string) (*parquetWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := parquet.NewGenericWriter[parquetRecord](f,
		parquet.Compression(&zstd.Codec{}),
	)

	return &parquetWriter{
		file:   f,
		writer: w,
		batch:  make([]parquetRecord, 0, parquetBatchSize),
	}, nil
}

func (w *parquetWriter) Write(rec logrec.Record) error {
	pr := parquetRecord{
		Position: rec.Position,
		Level:    rec.Level,
		Name:     rec.LevelName,
		Errno:    rec.Errno,
		Message:  rec.Message,
	}
	if rec.Detail != nil {
		pr.Detail = *rec.Detail
	}
	if rec.Hint != nil {
		pr.Hint = *rec.Hint
	}
	w.batch = append(w.batch, pr)
	if len(w.batch) >= parquetBatchSize {
		return w.flush()
	}
	return nil
}

func (w *parquetWriter) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	_, err := w.writer.Write(w.batch)
	w.batch = w.batch[:0]
	return err
}

func (w *parquetWriter) Close() error {
	if err := w.flush(); err != nil {
		_ = w.writer.Close()
		_ = w.file.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
