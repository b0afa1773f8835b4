package syncer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/partsync/partsync/internal/ops"
	"github.com/partsync/partsync/internal/stock"
)

type stubSource struct {
	mu      sync.Mutex
	payload stock.SyncPayload
	err     error
	calls   int
}

func (s *stubSource) FetchSnapshot(context.Context) (stock.SyncPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.payload, s.err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubNotifier struct {
	mu      sync.Mutex
	entries []string
}

func (n *stubNotifier) push(kind, title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, kind+": "+title+" | "+message)
}

func (n *stubNotifier) Info(title, message string)    { n.push("info", title, message) }
func (n *stubNotifier) Success(title, message string) { n.push("success", title, message) }
func (n *stubNotifier) Warning(title, message string) { n.push("warning", title, message) }

func (n *stubNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.entries...)
}

type stubReporter struct {
	mu     sync.Mutex
	events []ops.Event
}

func (r *stubReporter) Report(_ context.Context, event ops.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func syncPayload() stock.SyncPayload {
	return stock.SyncPayload{
		Products: []stock.Product{
			{ID: 1, Name: "Brake Pad", Stock: 42, LowStockThreshold: 10},
			{ID: 2, Name: "Oil Filter", Stock: 6, LowStockThreshold: 10},
		},
		LowStockAlerts: []stock.LowStockAlert{
			{ID: 9001, ProductID: 2, ProductName: "Oil Filter", CurrentStock: 6, Threshold: 10, IsNew: true},
			{ID: 9002, ProductID: 5, ProductName: "Air Filter", CurrentStock: 3, Threshold: 10, IsNew: false},
		},
		StockUpdates: []stock.StockUpdate{
			{Type: stock.UpdateSale, ProductName: "Brake Pad", Quantity: 2},
			{Type: stock.UpdateRestock, ProductName: "Oil Filter", Quantity: 50},
		},
	}
}

func TestSyncNowAppliesSnapshotAndNotifies(t *testing.T) {
	source := &stubSource{payload: syncPayload()}
	notifier := &stubNotifier{}
	ledger := stock.NewLedger(nil)
	s := NewScheduler(SchedulerConfig{Source: source, Ledger: ledger, Notifier: notifier})

	require.NoError(t, s.SyncNow(context.Background()))

	require.Len(t, ledger.Products(), 2)
	alerts := ledger.Alerts()
	require.Len(t, alerts, 1)
	require.Equal(t, int64(2), alerts[0].ProductID)
	require.False(t, alerts[0].IsNew)

	// One warning for the new alert only, plus one toast per stock update.
	require.Equal(t, []string{
		"warning: Low stock: Oil Filter | 6 remaining",
		"info: Sale: Brake Pad | Qty: 2",
		"success: Restocked: Oil Filter | +50",
	}, notifier.all())
}

func TestSyncNowFailureKeepsPriorSnapshot(t *testing.T) {
	source := &stubSource{payload: syncPayload()}
	notifier := &stubNotifier{}
	reporter := &stubReporter{}
	ledger := stock.NewLedger(nil)
	s := NewScheduler(SchedulerConfig{Source: source, Ledger: ledger, Notifier: notifier, Reporter: reporter})

	require.NoError(t, s.SyncNow(context.Background()))
	require.Len(t, ledger.Products(), 2)

	source.mu.Lock()
	source.err = errors.New("upstream down")
	source.mu.Unlock()

	err := s.SyncNow(context.Background())
	require.Error(t, err)
	require.Len(t, ledger.Products(), 2, "a failed sync leaves the previous snapshot in place")

	entries := notifier.all()
	require.Equal(t, "warning: Sync failed | Failed to sync inventory data", entries[len(entries)-1])

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	require.Len(t, reporter.events, 1)
	require.Equal(t, "sync_failed", reporter.events[0].Kind)
}

func TestSyncNowPersistsSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	cache := stock.NewSnapshotCache(client, 0)

	source := &stubSource{payload: syncPayload()}
	s := NewScheduler(SchedulerConfig{Source: source, Ledger: stock.NewLedger(nil), Cache: cache})
	require.NoError(t, s.SyncNow(context.Background()))

	products, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
}

func TestRestoreSeedsLedgerFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	cache := stock.NewSnapshotCache(client, 0)
	require.NoError(t, cache.Save(context.Background(), syncPayload().Products))

	ledger := stock.NewLedger(nil)
	s := NewScheduler(SchedulerConfig{Source: &stubSource{}, Ledger: ledger, Cache: cache})
	require.NoError(t, s.Restore(context.Background()))
	require.Len(t, ledger.Products(), 2)
}

func TestRestoreWithoutCacheIsNoOp(t *testing.T) {
	ledger := stock.NewLedger(nil)
	s := NewScheduler(SchedulerConfig{Source: &stubSource{}, Ledger: ledger})
	require.NoError(t, s.Restore(context.Background()))
	require.Empty(t, ledger.Products())
}

func TestEnableDisableIdempotent(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Interval: time.Hour,
		Source:   &stubSource{payload: syncPayload()},
		Ledger:   stock.NewLedger(nil),
	})
	defer s.Disable()

	require.False(t, s.Enabled())
	require.True(t, s.Enable())
	require.True(t, s.Enabled())
	require.False(t, s.Enable(), "enabling twice must not start a second loop")

	require.True(t, s.Disable())
	require.False(t, s.Enabled())
	require.False(t, s.Disable())
}

func TestPeriodicLoopSyncs(t *testing.T) {
	source := &stubSource{payload: syncPayload()}
	s := NewScheduler(SchedulerConfig{
		Interval: 20 * time.Millisecond,
		Source:   source,
		Ledger:   stock.NewLedger(nil),
	})
	require.True(t, s.Enable())
	defer s.Disable()

	require.Eventually(t, func() bool { return source.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	s.Disable()
	settled := source.callCount()
	time.Sleep(60 * time.Millisecond)
	require.LessOrEqual(t, source.callCount(), settled+1, "the loop stops after disable")
}

func TestHTTPSourceFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/admin/inventory/sync", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"products": [{"id": 1, "name": "Brake Pad", "stock": 42, "low_stock_threshold": 10}],
			"lowStockAlerts": [],
			"stockUpdates": [{"type": "sale", "productName": "Brake Pad", "quantity": 2}]
		}`))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, time.Second)
	payload, err := source.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, payload.Products, 1)
	require.Equal(t, "Brake Pad", payload.Products[0].Name)
	require.Len(t, payload.StockUpdates, 1)
}

func TestHTTPSourceNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, time.Second)
	_, err := source.FetchSnapshot(context.Background())
	require.Error(t, err)
}
