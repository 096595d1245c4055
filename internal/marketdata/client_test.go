package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/quantdesk/quantdesk/internal/metrics"
	"github.com/quantdesk/quantdesk/internal/types"
)

func newTestClient(baseURL string) *Client {
	cfg := DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = 1000 // tests should not wait on the limiter
	cfg.Burst = 1000
	return NewClient(cfg, nil)
}

func TestClient_OrdersStampsRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/10000002/orders" {
			t.Errorf("path = %s, want /markets/10000002/orders", r.URL.Path)
		}
		if r.URL.Query().Get("type_id") != "34" {
			t.Errorf("type_id = %s, want 34", r.URL.Query().Get("type_id"))
		}
		_ = json.NewEncoder(w).Encode([]types.MarketOrder{
			{OrderID: 1, TypeID: 34, LocationID: 60003760, Price: 5.1, VolumeRemain: 100},
			{OrderID: 2, TypeID: 34, LocationID: 60003760, Price: 5.2, VolumeRemain: 50, IsBuyOrder: true},
		})
	}))
	defer srv.Close()

	orders, err := newTestClient(srv.URL).Orders(context.Background(), 10000002, 34)
	if err != nil {
		t.Fatalf("Orders() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders len = %d, want 2", len(orders))
	}
	for _, o := range orders {
		if o.RegionID != 10000002 {
			t.Fatalf("order %d region = %d, want 10000002", o.OrderID, o.RegionID)
		}
	}
}

func TestClient_History(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]types.HistoryEntry{
			{Date: "2026-02-01", Average: 5.15, Volume: 12000},
		})
	}))
	defer srv.Close()

	entries, err := newTestClient(srv.URL).History(context.Background(), 10000002, 34)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Volume != 12000 {
		t.Fatalf("entries = %+v, want one row with volume 12000", entries)
	}
}

func TestClient_ErrorStatusIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Orders(context.Background(), 1, 34)
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Fatalf("Orders() error = %v, want ErrDataUnavailable", err)
	}
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := client.Orders(ctx, 1, 34); err == nil {
			t.Fatalf("request %d: expected error", i)
		}
	}

	_, err := client.Orders(ctx, 1, 34)
	if !errors.Is(err, types.ErrBreakerOpen) {
		t.Fatalf("error after 5 failures = %v, want ErrBreakerOpen", err)
	}
}

type fakeSource struct {
	orders    []types.MarketOrder
	history   []types.HistoryEntry
	err       error
	histCalls int
}

func (f *fakeSource) Orders(ctx context.Context, regionID, typeID int32) ([]types.MarketOrder, error) {
	return f.orders, f.err
}

func (f *fakeSource) History(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, error) {
	f.histCalls++
	return f.history, f.err
}

type fakeCache struct {
	entries  []types.HistoryEntry
	storedAt time.Time
	puts     int
}

func (f *fakeCache) GetHistory(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, time.Time, error) {
	if f.entries == nil {
		return nil, time.Time{}, types.ErrNotFound
	}
	return f.entries, f.storedAt, nil
}

func (f *fakeCache) PutHistory(ctx context.Context, regionID, typeID int32, entries []types.HistoryEntry) error {
	f.entries = entries
	f.storedAt = time.Now()
	f.puts++
	return nil
}

func TestCachingSource_FreshCacheSkipsUpstream(t *testing.T) {
	src := &fakeSource{history: []types.HistoryEntry{{Date: "2026-02-01", Volume: 5}}}
	cache := &fakeCache{
		entries:  []types.HistoryEntry{{Date: "2026-01-31", Volume: 9}},
		storedAt: time.Now(),
	}
	cs := NewCachingSource(src, cache, time.Hour, nil)

	entries, err := cs.History(context.Background(), 1, 34)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if src.histCalls != 0 {
		t.Fatalf("upstream calls = %d, want 0 on fresh cache", src.histCalls)
	}
	if entries[0].Volume != 9 {
		t.Fatalf("entries = %+v, want cached row", entries)
	}
}

func TestCachingSource_StaleCacheRefetchesAndStores(t *testing.T) {
	src := &fakeSource{history: []types.HistoryEntry{{Date: "2026-02-01", Volume: 5}}}
	cache := &fakeCache{
		entries:  []types.HistoryEntry{{Date: "2026-01-31", Volume: 9}},
		storedAt: time.Now().Add(-2 * time.Hour),
	}
	cs := NewCachingSource(src, cache, time.Hour, nil)

	entries, err := cs.History(context.Background(), 1, 34)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if src.histCalls != 1 {
		t.Fatalf("upstream calls = %d, want 1 on stale cache", src.histCalls)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}
	if entries[0].Volume != 5 {
		t.Fatalf("entries = %+v, want fetched row", entries)
	}
}

func TestCachingSource_FetchFailureIsNotPaperedOver(t *testing.T) {
	src := &fakeSource{err: types.ErrDataUnavailable}
	cache := &fakeCache{
		entries:  []types.HistoryEntry{{Date: "2026-01-31", Volume: 9}},
		storedAt: time.Now().Add(-2 * time.Hour), // stale
	}
	cs := NewCachingSource(src, cache, time.Hour, nil)

	_, err := cs.History(context.Background(), 1, 34)
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Fatalf("History() error = %v, want ErrDataUnavailable (no stale fallback)", err)
	}
}

func TestCachingSource_OrdersAlwaysPassThrough(t *testing.T) {
	src := &fakeSource{orders: []types.MarketOrder{{OrderID: 7}}}
	cs := NewCachingSource(src, &fakeCache{}, time.Hour, nil)

	orders, err := cs.Orders(context.Background(), 1, 34)
	if err != nil {
		t.Fatalf("Orders() error = %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != 7 {
		t.Fatalf("orders = %+v, want pass-through row", orders)
	}
}

func TestClient_RecordsUpstreamRequestMetrics(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("orders", "ok"))
	errBefore := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("history", "error"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/markets/1/orders" {
			_ = json.NewEncoder(w).Encode([]types.MarketOrder{})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx := context.Background()

	if _, err := client.Orders(ctx, 1, 34); err != nil {
		t.Fatalf("Orders() error = %v", err)
	}
	if _, err := client.History(ctx, 1, 34); err == nil {
		t.Fatal("History() expected error")
	}

	if got := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("orders", "ok")) - okBefore; got != 1 {
		t.Errorf("orders/ok delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("history", "error")) - errBefore; got != 1 {
		t.Errorf("history/error delta = %v, want 1", got)
	}
}

func TestClient_OpenBreakerSetsGauge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = client.Orders(ctx, 1, 34)
	}

	if !client.BreakerOpen() {
		t.Fatal("BreakerOpen() = false after 5 consecutive failures")
	}
	if got := testutil.ToFloat64(metrics.UpstreamBreakerOpen); got != 1 {
		t.Errorf("breaker gauge = %v, want 1", got)
	}
}

func TestCachingSource_RecordsHitAndMiss(t *testing.T) {
	hitsBefore := testutil.ToFloat64(metrics.HistoryCacheHits)
	missesBefore := testutil.ToFloat64(metrics.HistoryCacheMisses)

	src := &fakeSource{history: []types.HistoryEntry{{Date: "2026-02-01", Volume: 5}}}
	fresh := &fakeCache{
		entries:  []types.HistoryEntry{{Date: "2026-01-31", Volume: 9}},
		storedAt: time.Now(),
	}
	cs := NewCachingSource(src, fresh, time.Hour, nil)
	if _, err := cs.History(context.Background(), 1, 34); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if got := testutil.ToFloat64(metrics.HistoryCacheHits) - hitsBefore; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}

	stale := &fakeCache{
		entries:  []types.HistoryEntry{{Date: "2026-01-31", Volume: 9}},
		storedAt: time.Now().Add(-2 * time.Hour),
	}
	cs = NewCachingSource(src, stale, time.Hour, nil)
	if _, err := cs.History(context.Background(), 1, 34); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if got := testutil.ToFloat64(metrics.HistoryCacheMisses) - missesBefore; got != 1 {
		t.Errorf("misses delta = %v, want 1", got)
	}
}
