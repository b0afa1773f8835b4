// Package syncer orchestrates periodic and manual inventory synchronization,
// feeding the stock ledger and the notification manager.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/partsync/partsync/internal/stock"
)

// Source provides the inventory snapshot for one sync run.
type Source interface {
	FetchSnapshot(ctx context.Context) (stock.SyncPayload, error)
}

// HTTPSource fetches the snapshot from the admin inventory sync endpoint.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource constructs an HTTPSource.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchSnapshot issues the sync GET and decodes the payload.
func (s *HTTPSource) FetchSnapshot(ctx context.Context) (stock.SyncPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/admin/inventory/sync", nil)
	if err != nil {
		return stock.SyncPayload{}, fmt.Errorf("syncer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return stock.SyncPayload{}, fmt.Errorf("syncer: fetch snapshot: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return stock.SyncPayload{}, fmt.Errorf("syncer: sync endpoint returned status %d", resp.StatusCode)
	}

	var payload stock.SyncPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return stock.SyncPayload{}, fmt.Errorf("syncer: decode snapshot: %w", err)
	}
	return payload, nil
}
