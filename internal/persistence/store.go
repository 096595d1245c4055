// Package persistence provides the sqlite-backed store for the history
// cache and the desk report audit log.
package persistence

import (
	"context"
	"time"

	"github.com/quantdesk/quantdesk/internal/types"
)

// DeskReport is the persisted summary of one order desk computation,
// kept as an audit trail of what the desk recommended and when.
type DeskReport struct {
	ID              string
	CreatedAt       time.Time
	TotalOrders     int
	BuyOrders       int
	SellOrders      int
	NeedsReprice    int
	NeedsCancel     int
	UnknownETACount int
	TotalNotional   float64
	MedianETADays   float64
}

// Store defines the persistence interface.
type Store interface {
	// History cache (satisfies marketdata.HistoryCache).
	GetHistory(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, time.Time, error)
	PutHistory(ctx context.Context, regionID, typeID int32, entries []types.HistoryEntry) error

	// Desk report log.
	SaveDeskReport(ctx context.Context, report DeskReport) error
	ListDeskReports(ctx context.Context, limit int) ([]DeskReport, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
