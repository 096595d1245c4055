// Package book simulates filling a quantity against a price-sorted order
// book: expected price, slippage, feasibility and a level-by-level fill
// breakdown. Everything here is a pure function of its inputs.
package book

import (
	"math"
	"sort"

	"github.com/quantdesk/quantdesk/internal/types"
)

// Level is one aggregated price level of a single book side, sorted by
// execution priority (ascending price for asks, descending for bids).
type Level struct {
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
	IsOwn  bool    `json:"is_own"`
}

// DepthLevel is one row of the fill curve.
type DepthLevel struct {
	Price        float64 `json:"price"`
	Volume       int64   `json:"volume"`
	Cumulative   int64   `json:"cumulative"`
	VolumeFilled int64   `json:"volume_filled"`
}

// Plan is the result of simulating a market order against one book side.
type Plan struct {
	BestPrice       float64      `json:"best_price"`
	ExpectedPrice   float64      `json:"expected_price"` // volume-weighted avg over the filled part
	SlippagePercent float64      `json:"slippage_percent"`
	TotalCost       float64      `json:"total_cost"`
	FilledQuantity  int64        `json:"filled_quantity"`
	TotalDepth      int64        `json:"total_depth"`
	CanFill         bool         `json:"can_fill"`
	DepthLevels     []DepthLevel `json:"depth_levels"`
	OptimalSlices   int          `json:"optimal_slices"`
	SuggestedMinGap int          `json:"suggested_min_gap"` // minutes between slices
}

// Slicing heuristic bounds: each slice should stay under a fixed share of
// book depth so one clip cannot sweep the visible liquidity.
const (
	targetParticipation = 0.05
	minSliceSize        = 10
	maxSlices           = 20

	// extraDisplayLevels untouched levels are kept on the fill curve so a
	// caller can show where the walk would have gone next.
	extraDisplayLevels = 3
)

// BuildLevels collapses raw book rows into aggregated price levels for one
// side. A buy simulation consumes sell orders and walks them from the lowest
// ask; a sell simulation consumes buy orders from the highest bid. Rows on
// the wrong side are dropped rather than silently mispriced.
func BuildLevels(orders []types.MarketOrder, isBuy bool) []Level {
	byPrice := make(map[float64]int64)
	for _, o := range orders {
		if o.IsBuyOrder == isBuy {
			continue
		}
		if o.VolumeRemain <= 0 {
			continue
		}
		byPrice[o.Price] += o.VolumeRemain
	}

	levels := make([]Level, 0, len(byPrice))
	for p, v := range byPrice {
		levels = append(levels, Level{Price: p, Volume: v})
	}
	sort.Slice(levels, func(i, j int) bool {
		if isBuy {
			return levels[i].Price < levels[j].Price
		}
		return levels[i].Price > levels[j].Price
	})
	return levels
}

// Simulate walks the levels in priority order until quantity is filled or
// depth runs out. An empty book is a valid "no liquidity" answer, not an
// error; the only rejected input is a non-positive quantity.
func Simulate(levels []Level, quantity int64) (Plan, error) {
	if quantity <= 0 {
		return Plan{}, types.ErrInvalidQuantity
	}

	var plan Plan
	if len(levels) == 0 {
		return plan, nil
	}

	plan.BestPrice = levels[0].Price
	for _, lv := range levels {
		if lv.Volume > 0 {
			plan.TotalDepth += lv.Volume
		}
	}

	remaining := quantity
	var costSum float64
	extra := 0
	for _, lv := range levels {
		if lv.Volume <= 0 {
			continue
		}
		if remaining <= 0 {
			// A few untouched levels stay on the curve for display.
			if extra >= extraDisplayLevels {
				break
			}
			extra++
			plan.DepthLevels = append(plan.DepthLevels, DepthLevel{
				Price:      lv.Price,
				Volume:     lv.Volume,
				Cumulative: plan.FilledQuantity,
			})
			continue
		}
		fill := lv.Volume
		if fill > remaining {
			fill = remaining
		}
		remaining -= fill
		costSum += lv.Price * float64(fill)
		plan.FilledQuantity += fill
		plan.DepthLevels = append(plan.DepthLevels, DepthLevel{
			Price:        lv.Price,
			Volume:       lv.Volume,
			Cumulative:   plan.FilledQuantity,
			VolumeFilled: fill,
		})
	}

	plan.CanFill = remaining <= 0
	if plan.FilledQuantity == 0 {
		return plan, nil
	}

	plan.ExpectedPrice = costSum / float64(plan.FilledQuantity)
	if plan.BestPrice > 0 {
		// Reported as a magnitude; the caller knows the side and hence the
		// direction (buys pay up, sells give up).
		plan.SlippagePercent = math.Abs((plan.ExpectedPrice - plan.BestPrice) / plan.BestPrice * 100)
	}
	plan.TotalCost = plan.ExpectedPrice * float64(plan.FilledQuantity)

	plan.OptimalSlices = participationSlices(quantity, plan.TotalDepth)
	plan.SuggestedMinGap = GapMinutes(plan.OptimalSlices)

	return plan, nil
}

// participationSlices sizes each slice at targetParticipation of visible
// depth, with a floor so illiquid books still get workable clip sizes.
func participationSlices(quantity, totalDepth int64) int {
	sliceSize := float64(totalDepth) * targetParticipation
	if sliceSize < minSliceSize {
		sliceSize = minSliceSize
	}
	n := int(math.Ceil(float64(quantity) / sliceSize))
	if n < 1 {
		n = 1
	}
	if n > maxSlices {
		n = maxSlices
	}
	return n
}

// GapMinutes suggests a minimum spacing between slices so consecutive clips
// do not re-consume the same shallow depth before it refills. More slices
// get longer gaps.
func GapMinutes(slices int) int {
	switch {
	case slices <= 1:
		return 0
	case slices <= 3:
		return 5
	case slices <= 8:
		return 10
	default:
		return 15
	}
}
