// Package watch renders a live terminal dashboard for a running
// collector by polling its status endpoint.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avoronov/ringlog/internal/collect"
)

const statusPath = "/api/v1/status"

// StatusFunc fetches a point-in-time collector status.
type StatusFunc func(ctx context.Context) (collect.Status, error)

// NewStatusFunc returns a StatusFunc that polls the collector at base,
// e.g. "http://localhost:9280".
func NewStatusFunc(base string) StatusFunc {
	client := &http.Client{Timeout: 5 * time.Second}
	url := base + statusPath

	return func(ctx context.Context) (collect.Status, error) {
		var st collect.Status

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return st, fmt.Errorf("status request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return st, fmt.Errorf("status fetch: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return st, fmt.Errorf("status fetch: unexpected status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return st, fmt.Errorf("status decode: %w", err)
		}
		return st, nil
	}
}
