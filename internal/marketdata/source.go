// Package marketdata supplies order-book and history snapshots from the
// upstream market API. The engine itself never performs I/O; everything it
// consumes arrives through the Source interface defined here, and a fetch
// failure always surfaces as "unavailable" rather than stale or partial
// data.
package marketdata

import (
	"context"

	"github.com/quantdesk/quantdesk/internal/types"
)

// Source is the read interface the engine's callers use to assemble
// request snapshots. Implementations may be live clients, caches, or test
// stubs.
type Source interface {
	// Orders returns the current regional order book rows for a type.
	Orders(ctx context.Context, regionID, typeID int32) ([]types.MarketOrder, error)

	// History returns the daily price/volume series for a pair. The series
	// is sparse: days without trades are absent.
	History(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, error)
}
