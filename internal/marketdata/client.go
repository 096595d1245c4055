package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/quantdesk/quantdesk/internal/metrics"
	"github.com/quantdesk/quantdesk/internal/types"
)

// ClientConfig holds settings for the upstream market API client.
type ClientConfig struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// DefaultClientConfig returns conservative defaults that respect typical
// public API rate limits.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		Timeout:           15 * time.Second,
	}
}

// Client fetches order books and history over HTTP. Calls are rate-limited
// and guarded by a circuit breaker so a misbehaving upstream degrades to
// "unavailable" quickly instead of piling up timeouts.
type Client struct {
	cfg      ClientConfig
	httpc    *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// NewClient creates a market data client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultClientConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultClientConfig().Burst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientConfig().Timeout
	}

	recorder := metrics.NewRecorder()
	settings := gobreaker.Settings{
		Name:    "marketdata",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
			recorder.RecordBreakerState(to == gobreaker.StateOpen)
		},
	}

	return &Client{
		cfg:      cfg,
		httpc:    &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   logger,
		recorder: recorder,
	}
}

// BreakerOpen reports whether the upstream circuit breaker is currently
// rejecting calls. Exposed for readiness checks.
func (c *Client) BreakerOpen() bool {
	return c.breaker.State() == gobreaker.StateOpen
}

// Orders fetches the regional order book rows for a type. The upstream
// response omits the region, so it is stamped onto each row here.
func (c *Client) Orders(ctx context.Context, regionID, typeID int32) ([]types.MarketOrder, error) {
	url := fmt.Sprintf("%s/markets/%d/orders?type_id=%d", c.cfg.BaseURL, regionID, typeID)

	var orders []types.MarketOrder
	if err := c.getJSON(ctx, "orders", url, &orders); err != nil {
		return nil, fmt.Errorf("orders %d/%d: %w", regionID, typeID, err)
	}
	for i := range orders {
		orders[i].RegionID = regionID
	}
	return orders, nil
}

// History fetches the daily history series for a pair.
func (c *Client) History(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, error) {
	url := fmt.Sprintf("%s/markets/%d/history?type_id=%d", c.cfg.BaseURL, regionID, typeID)

	var entries []types.HistoryEntry
	if err := c.getJSON(ctx, "history", url, &entries); err != nil {
		return nil, fmt.Errorf("history %d/%d: %w", regionID, typeID, err)
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) (err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveUpstream()
		c.recorder.RecordUpstreamRequest(endpoint, err)
	}()

	body, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var buf json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return buf, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("%v: %w", err, types.ErrBreakerOpen)
		}
		return fmt.Errorf("%v: %w", err, types.ErrDataUnavailable)
	}

	if err := json.Unmarshal(body.(json.RawMessage), out); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, types.ErrDataUnavailable)
	}
	return nil
}
