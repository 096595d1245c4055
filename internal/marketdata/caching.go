package marketdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantdesk/quantdesk/internal/metrics"
	"github.com/quantdesk/quantdesk/internal/types"
)

// HistoryCache stores history series between requests. Implemented by the
// persistence layer; an entry carries the time it was stored so callers can
// judge freshness.
type HistoryCache interface {
	GetHistory(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, time.Time, error)
	PutHistory(ctx context.Context, regionID, typeID int32, entries []types.HistoryEntry) error
}

// CachingSource wraps a Source with a history cache. Order books always
// pass through to the upstream (queue positions need a fresh snapshot);
// history changes once a day and is served from cache within the TTL.
// A fetch failure is returned as-is, never papered over with stale data.
type CachingSource struct {
	src      Source
	cache    HistoryCache
	ttl      time.Duration
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// NewCachingSource wraps src with cache. A non-positive ttl disables
// caching reads (writes still happen, so a later restart warms up).
func NewCachingSource(src Source, cache HistoryCache, ttl time.Duration, logger *slog.Logger) *CachingSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingSource{
		src:      src,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
		recorder: metrics.NewRecorder(),
	}
}

// Orders delegates to the wrapped source.
func (s *CachingSource) Orders(ctx context.Context, regionID, typeID int32) ([]types.MarketOrder, error) {
	return s.src.Orders(ctx, regionID, typeID)
}

// History serves from cache when fresh, otherwise fetches and stores.
func (s *CachingSource) History(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, error) {
	if s.ttl > 0 {
		entries, storedAt, err := s.cache.GetHistory(ctx, regionID, typeID)
		if err == nil && time.Since(storedAt) < s.ttl {
			s.recorder.RecordCacheHit(true)
			return entries, nil
		}
		s.recorder.RecordCacheHit(false)
	}

	entries, err := s.src.History(ctx, regionID, typeID)
	if err != nil {
		return nil, err
	}
	if putErr := s.cache.PutHistory(ctx, regionID, typeID, entries); putErr != nil {
		s.logger.Warn("history cache write failed",
			"region_id", regionID, "type_id", typeID, "err", putErr)
	}
	return entries, nil
}
