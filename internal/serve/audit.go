package serve

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records a single auditable buffer operation.
type AuditEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Event      string    `json:"event"`
	RemoteIP   string    `json:"remote_ip,omitempty"`
	Records    int       `json:"records,omitempty"`
	Bytes      int       `json:"bytes,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// AuditLogger writes append-only JSONL audit records.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewAuditLogger creates an audit logger appending to path.
func NewAuditLogger(path string) (*AuditLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: f, enc: json.NewEncoder(f)}, nil
}

// Log writes an audit entry, assigning it an id and timestamp.
// Safe to call from multiple goroutines. If a is nil, the call is a no-op.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(entry)
}

// Close flushes and closes the audit log file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	return a.file.Close()
}
