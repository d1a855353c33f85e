package cloud

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// captureWriter records uploaded bytes and the key the writer was opened
// for, and can fail on write or on finalize.
type captureWriter struct {
	buf      bytes.Buffer
	writeErr error
	closeErr error
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return w.buf.Write(p)
}

func (w *captureWriter) Close() error { return w.closeErr }

// attrsIterator walks a fixed ObjectAttrs slice, ending with iterator.Done.
type attrsIterator struct {
	attrs []*gstorage.ObjectAttrs
	idx   int
	err   error
}

func (it *attrsIterator) Next() (*gstorage.ObjectAttrs, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.idx >= len(it.attrs) {
		return nil, iterator.Done
	}
	a := it.attrs[it.idx]
	it.idx++
	return a, nil
}

func TestGCSUpload(t *testing.T) {
	w := &captureWriter{}
	var openedKey string
	b := &gcsBackend{
		bucket: "ringlog-exports",
		newWriter: func(_ context.Context, _, key string) io.WriteCloser {
			openedKey = key
			return w
		},
	}

	body := `{"level_name":"error","message":"boom"}` + "\n"
	if err := b.Upload(context.Background(), "drains/records-20260826.jsonl", strings.NewReader(body), int64(len(body))); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if openedKey != "drains/records-20260826.jsonl" {
		t.Errorf("writer opened for %q", openedKey)
	}
	if w.buf.String() != body {
		t.Errorf("uploaded %q", w.buf.String())
	}
}

func TestGCSUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		writer *captureWriter
		want   string
	}{
		{"write failure", &captureWriter{writeErr: errors.New("quota exceeded")}, "gcs upload"},
		{"finalize failure", &captureWriter{closeErr: errors.New("commit failed")}, "gcs finalize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &gcsBackend{
				bucket:    "ringlog-exports",
				newWriter: func(context.Context, string, string) io.WriteCloser { return tt.writer },
			}
			err := b.Upload(context.Background(), "drains/records.parquet", strings.NewReader("x"), 1)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %s wrap", err, tt.want)
			}
		})
	}
}

func TestGCSDownload(t *testing.T) {
	body := `{"level_name":"warning","message":"disk full"}` + "\n"
	b := &gcsBackend{
		bucket: "ringlog-exports",
		newReader: func(_ context.Context, _, key string) (io.ReadCloser, error) {
			if key != "drains/records.jsonl" {
				t.Errorf("reader opened for %q", key)
			}
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}

	var buf bytes.Buffer
	if err := b.Download(context.Background(), "drains/records.jsonl", &buf); err != nil {
		t.Fatalf("download: %v", err)
	}
	if buf.String() != body {
		t.Errorf("downloaded %q", buf.String())
	}
}

func TestGCSDownloadErrors(t *testing.T) {
	b := &gcsBackend{
		bucket: "ringlog-exports",
		newReader: func(context.Context, string, string) (io.ReadCloser, error) {
			return nil, errors.New("object not found")
		},
	}
	var buf bytes.Buffer
	if err := b.Download(context.Background(), "missing.jsonl", &buf); err == nil ||
		!strings.Contains(err.Error(), "gcs get") {
		t.Fatalf("err = %v, want gcs get wrap", err)
	}

	b.newReader = func(context.Context, string, string) (io.ReadCloser, error) {
		return io.NopCloser(&failReader{}), nil
	}
	buf.Reset()
	if err := b.Download(context.Background(), "truncated.jsonl", &buf); err == nil ||
		!strings.Contains(err.Error(), "gcs download") {
		t.Fatalf("err = %v, want gcs download wrap", err)
	}
}

func TestGCSList(t *testing.T) {
	var gotPrefix string
	it := &attrsIterator{attrs: []*gstorage.ObjectAttrs{
		{Name: "drains/records-1.jsonl.zst", Size: 256},
		{Name: "drains/records-2.csv", Size: 1024},
	}}
	b := &gcsBackend{
		bucket: "ringlog-exports",
		newIterator: func(_ context.Context, _, prefix string) gcsObjectIterator {
			gotPrefix = prefix
			return it
		},
	}

	objects, err := b.List(context.Background(), "drains")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// The prefix gets a single trailing slash appended.
	if gotPrefix != "drains/" {
		t.Errorf("query prefix = %q, want drains/", gotPrefix)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(objects))
	}
	if objects[0] != (ObjectInfo{Key: "drains/records-1.jsonl.zst", Size: 256}) {
		t.Errorf("objects[0] = %+v", objects[0])
	}
	if objects[1] != (ObjectInfo{Key: "drains/records-2.csv", Size: 1024}) {
		t.Errorf("objects[1] = %+v", objects[1])
	}
}

func TestGCSListPrefixes(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"drains", "drains/"},
		{"drains/", "drains/"},
		{"", ""},
	}

	for _, tt := range tests {
		var gotPrefix string
		b := &gcsBackend{
			bucket: "ringlog-exports",
			newIterator: func(_ context.Context, _, prefix string) gcsObjectIterator {
				gotPrefix = prefix
				return &attrsIterator{}
			},
		}
		if _, err := b.List(context.Background(), tt.prefix); err != nil {
			t.Fatalf("list(%q): %v", tt.prefix, err)
		}
		if gotPrefix != tt.want {
			t.Errorf("list(%q) queried prefix %q, want %q", tt.prefix, gotPrefix, tt.want)
		}
	}
}

func TestGCSListError(t *testing.T) {
	b := &gcsBackend{
		bucket: "ringlog-exports",
		newIterator: func(context.Context, string, string) gcsObjectIterator {
			return &attrsIterator{err: errors.New("permission denied")}
		},
	}
	if _, err := b.List(context.Background(), "drains"); err == nil ||
		!strings.Contains(err.Error(), "gcs list") {
		t.Fatalf("err = %v, want gcs list wrap", err)
	}
}

func TestGCSShareURL(t *testing.T) {
	b := &gcsBackend{
		bucket: "ringlog-exports",
		signURL: func(bucket, key string, expiry time.Duration) (string, error) {
			if bucket != "ringlog-exports" || key != "drains/records.parquet" {
				t.Errorf("sign for %s/%s", bucket, key)
			}
			if expiry != time.Hour {
				t.Errorf("expiry = %v", expiry)
			}
			return "https://signed.example/records.parquet", nil
		},
	}

	url, err := b.ShareURL(context.Background(), "drains/records.parquet", time.Hour)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if url != "https://signed.example/records.parquet" {
		t.Errorf("url = %q", url)
	}
}

func TestGCSShareURLError(t *testing.T) {
	b := &gcsBackend{
		bucket: "ringlog-exports",
		signURL: func(string, string, time.Duration) (string, error) {
			return "", errors.New("no signing key")
		},
	}
	if _, err := b.ShareURL(context.Background(), "k", time.Hour); err == nil ||
		!strings.Contains(err.Error(), "gcs sign") {
		t.Fatalf("err = %v, want gcs sign wrap", err)
	}
}
