// Package types defines shared types used across the execution engine.
package types

// PairKey identifies a (region, type) market pair.
type PairKey [2]int32

// NewPairKey creates a stable key for book and history lookups.
func NewPairKey(regionID, typeID int32) PairKey {
	return PairKey{regionID, typeID}
}

// RegionID returns the region component of the key.
func (k PairKey) RegionID() int32 { return k[0] }

// TypeID returns the type component of the key.
func (k PairKey) TypeID() int32 { return k[1] }

// MarketOrder is one resting order in a regional order book snapshot.
type MarketOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	RegionID     int32   `json:"region_id"`
	LocationID   int64   `json:"location_id"`
	Price        float64 `json:"price"`
	VolumeRemain int64   `json:"volume_remain"`
	IsBuyOrder   bool    `json:"is_buy_order"`
}

// OwnOrder is one of the caller's resting orders. It carries the issue
// metadata needed for expiry estimates plus the display names the desk
// echoes back unchanged.
type OwnOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	TypeName     string  `json:"type_name"`
	RegionID     int32   `json:"region_id"`
	LocationID   int64   `json:"location_id"`
	LocationName string  `json:"location_name"`
	Price        float64 `json:"price"`
	VolumeRemain int64   `json:"volume_remain"`
	VolumeTotal  int64   `json:"volume_total"`
	IsBuyOrder   bool    `json:"is_buy_order"`
	Issued       string  `json:"issued"`   // RFC3339 issue timestamp
	Duration     int     `json:"duration"` // order lifetime in days
}

// HistoryEntry is one daily row of a market history series. The upstream
// source omits days with zero trades, so a series is usually sparse.
type HistoryEntry struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	Volume     int64   `json:"volume"`
	OrderCount int64   `json:"order_count"`
}

// Recommendation is the desk's verdict for one resting order.
type Recommendation string

const (
	RecommendHold    Recommendation = "hold"
	RecommendReprice Recommendation = "reprice"
	RecommendCancel  Recommendation = "cancel"
)

// Priority orders recommendations for triage: cancel first, hold last.
func (r Recommendation) Priority() int {
	switch r {
	case RecommendCancel:
		return 0
	case RecommendReprice:
		return 1
	default:
		return 2
	}
}
