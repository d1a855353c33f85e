package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avoronov/ringlog/internal/cli"
	"github.com/avoronov/ringlog/internal/logrec"
)

const (
	recordsPath = "/api/v1/records"
	resetPath   = "/api/v1/reset"
	statusPath  = "/api/v1/status"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// doServer issues a request against the collector and maps transport and
// HTTP failures to structured CLI errors.
func doServer(ctx context.Context, method, server, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, server+path, nil)
	if err != nil {
		return nil, cli.NewUsageError(fmt.Sprintf("bad server URL: %v", err))
	}

	resp, err := newHTTPClient().Do(req)
	if err != nil {
		return nil, cli.NewNetworkError(fmt.Sprintf("collector unreachable: %v", err))
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, cli.NewCorruptError(fmt.Sprintf("drain aborted: %s", string(body)))
	case resp.StatusCode >= 400:
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, cli.NewInternalError(fmt.Sprintf("collector returned %d: %s", resp.StatusCode, string(body)))
	}

	return resp, nil
}

// drainRecords fetches all pending records as NDJSON and decodes them.
func drainRecords(ctx context.Context, server string) ([]logrec.Record, error) {
	resp, err := doServer(ctx, http.MethodGet, server, recordsPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var recs []logrec.Record
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec logrec.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, cli.NewInternalError(fmt.Sprintf("decode record: %v", err))
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, cli.NewNetworkError(fmt.Sprintf("read records: %v", err))
	}
	return recs, nil
}

func printRecord(w io.Writer, rec logrec.Record) {
	_, _ = fmt.Fprintf(w, "%-10s errno=%d %s", rec.LevelName, rec.Errno, rec.Message)
	if rec.Detail != nil {
		_, _ = fmt.Fprintf(w, "\n  detail: %s", *rec.Detail)
	}
	if rec.Hint != nil {
		_, _ = fmt.Fprintf(w, "\n  hint: %s", *rec.Hint)
	}
	_, _ = fmt.Fprintln(w)
}
