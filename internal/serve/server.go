// Package serve exposes the collector over HTTP: producers post records,
// consumers drain, reset, and inspect the buffer.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/avoronov/ringlog/internal/collect"
	"github.com/avoronov/ringlog/internal/logrec"
	"github.com/avoronov/ringlog/internal/redact"
	"github.com/avoronov/ringlog/internal/ring"
)

const maxRequestBytes = 10 << 20 // 10MB

// APIVersion is incremented on breaking changes to the capture API.
const APIVersion = 1

// Server is the HTTP collector server.
type Server struct {
	httpSrv    *http.Server
	collector  *collect.Collector
	redactor   *redact.Redactor
	audit      *AuditLogger
	log        *zap.Logger
	parser     fastjson.ParserPool
	activeConn atomic.Int64
	version    string
}

// NewServer creates an HTTP server bound to addr.
func NewServer(addr string, collector *collect.Collector, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		collector: collector,
		log:       log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/capture", s.handleCapture)
	mux.HandleFunc("GET /api/v1/records", s.handleRecords)
	mux.HandleFunc("POST /api/v1/reset", s.handleReset)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// SetRedactor attaches a redactor applied to every event before capture.
func (s *Server) SetRedactor(r *redact.Redactor) {
	s.redactor = r
}

// SetAuditLogger attaches an audit logger to the server.
func (s *Server) SetAuditLogger(a *AuditLogger) {
	s.audit = a
}

// SetVersion sets the application version reported by /api/version.
func (s *Server) SetVersion(v string) {
	s.version = v
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpSrv.ListenAndServe()
}

// ListenAndServeTLS starts the HTTPS server.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.httpSrv.ListenAndServeTLS(certFile, keyFile)
}

// Serve accepts connections on a listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpSrv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// captureResult is the capture endpoint response payload.
type captureResult struct {
	Captured int      `json:"captured"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.trackConnOpen()
	defer s.trackConnClose()

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("read body: %v", err), http.StatusBadRequest)
		return
	}

	p := s.parser.Get()
	defer s.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	var res captureResult
	captureOne := func(val *fastjson.Value) {
		ev := logrec.Event{
			Level:   string(val.GetStringBytes("level")),
			Errno:   int32(val.GetInt("errno")),
			Message: string(val.GetStringBytes("message")),
			Detail:  string(val.GetStringBytes("detail")),
			Hint:    string(val.GetStringBytes("hint")),
		}
		if s.redactor != nil {
			ev.Message = s.redactor.Apply(ev.Message)
			ev.Detail = s.redactor.Apply(ev.Detail)
			ev.Hint = s.redactor.Apply(ev.Hint)
		}
		if err := s.collector.Capture(ev); err != nil {
			res.Rejected++
			if len(res.Errors) < 10 {
				res.Errors = append(res.Errors, err.Error())
			}
			return
		}
		res.Captured++
	}

	if v.Type() == fastjson.TypeArray {
		arr, _ := v.Array()
		for _, val := range arr {
			captureOne(val)
		}
	} else {
		captureOne(v)
	}

	s.audit.Log(AuditEntry{
		Event:      "capture",
		RemoteIP:   stripPort(r.RemoteAddr),
		Records:    res.Captured,
		Bytes:      len(body),
		DurationMS: time.Since(start).Milliseconds(),
	})

	w.Header().Set("Content-Type", "application/json")
	if res.Captured == 0 && res.Rejected > 0 {
		w.WriteHeader(http.StatusBadRequest)
	} else {
		w.WriteHeader(http.StatusAccepted)
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleRecords drains the buffer and streams the records as NDJSON,
// oldest first. Draining consumes: a second request returns nothing.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.trackConnOpen()
	defer s.trackConnClose()

	recs, err := s.collector.DrainAll()
	if err != nil {
		if errors.Is(err, ring.ErrBadFrame) {
			s.log.Warn("drain hit unreadable frame", zap.Error(err))
			http.Error(w, fmt.Sprintf("corrupt frame: %v", err), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			s.log.Warn("write drained record", zap.Error(err))
			return
		}
	}

	s.audit.Log(AuditEntry{
		Event:      "drain",
		RemoteIP:   stripPort(r.RemoteAddr),
		Records:    len(recs),
		DurationMS: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.trackConnOpen()
	defer s.trackConnClose()

	s.collector.Reset()
	s.audit.Log(AuditEntry{
		Event:    "reset",
		RemoteIP: stripPort(r.RemoteAddr),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.collector.Status())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	v := s.version
	if v == "" {
		v = "dev"
	}
	resp := struct {
		Version string `json:"version"`
		API     int    `json:"api"`
	}{
		Version: v,
		API:     APIVersion,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) trackConnOpen() {
	s.activeConn.Add(1)
}

func (s *Server) trackConnClose() {
	s.activeConn.Add(-1)
}

func stripPort(addr string) string {
	if host, _, ok := strings.Cut(addr, ":"); ok {
		return host
	}
	return addr
}
