package cloud

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/avoronov/ringlog/internal/export"
	"github.com/avoronov/ringlog/internal/logrec"
)

// Uploader exports drained records to a file and ships it to a backend.
type Uploader struct {
	backend Backend
	prefix  string

	// now is swappable for deterministic object keys in tests.
	now func() time.Time
}

// NewUploader creates an uploader writing under prefix in the backend.
func NewUploader(backend Backend, prefix string) *Uploader {
	return &Uploader{backend: backend, prefix: prefix, now: time.Now}
}

// UploadRecords exports recs in the given format to a temporary file and
// uploads it. It returns the object key the records were stored under.
func (u *Uploader) UploadRecords(ctx context.Context, recs []logrec.Record, format export.Format, opts export.Options) (string, error) {
	key := u.objectKey(format, opts)

	tmp := filepath.Join(os.TempDir(), path.Base(key))
	if err := export.Export(tmp, format, opts, recs); err != nil {
		return "", fmt.Errorf("export records: %w", err)
	}
	defer func() { _ = os.Remove(tmp) }()

	f, err := os.Open(tmp)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	if err := u.backend.Upload(ctx, key, f, info.Size()); err != nil {
		return "", err
	}
	return key, nil
}

func (u *Uploader) objectKey(format export.Format, opts export.Options) string {
	name := fmt.Sprintf("records-%s.%s", u.now().UTC().Format("20060102T150405"), format)
	if format == export.FormatJSONL && opts.Compress {
		name += ".zst"
	}
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}
