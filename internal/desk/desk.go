// Package desk computes order management analytics for a portfolio of
// resting orders: queue position against the competing book, queue-ahead
// volume, time-to-fill estimates from historical volume, expiry risk, and a
// hold/reprice/cancel recommendation with a concrete suggested price.
//
// The computation is pure: it never fetches data and never errors on gaps.
// Every unknown degrades to an explicit sentinel (-1 ETA, book_available
// false) that callers must treat as "cannot determine", never as zero.
package desk

import (
	"math"
	"sort"
	"time"

	"github.com/quantdesk/quantdesk/internal/pricing"
	"github.com/quantdesk/quantdesk/internal/types"
	"github.com/quantdesk/quantdesk/pkg/stat"
)

// Options controls recommendation thresholds and fee assumptions. Fees feed
// the net-value display fields only; they never alter ranking, queueing or
// ETA.
type Options struct {
	SalesTaxPercent   float64
	BrokerFeePercent  float64
	TargetETADays     float64
	WarnExpiryDays    int
	HistoryWindowDays int       // fixed calendar window for volume averaging
	Now               time.Time // zero means wall clock; injectable for tests
}

// Settings are the normalized options echoed in the response.
type Settings struct {
	SalesTaxPercent   float64 `json:"sales_tax_percent"`
	BrokerFeePercent  float64 `json:"broker_fee_percent"`
	TargetETADays     float64 `json:"target_eta_days"`
	WarnExpiryDays    int     `json:"warn_expiry_days"`
	HistoryWindowDays int     `json:"history_window_days"`
}

// Row is one resting order annotated with market context.
type Row struct {
	OrderID        int64                `json:"order_id"`
	TypeID         int32                `json:"type_id"`
	TypeName       string               `json:"type_name"`
	RegionID       int32                `json:"region_id"`
	LocationID     int64                `json:"location_id"`
	LocationName   string               `json:"location_name"`
	IsBuyOrder     bool                 `json:"is_buy_order"`
	Price          float64              `json:"price"`
	VolumeRemain   int64                `json:"volume_remain"`
	VolumeTotal    int64                `json:"volume_total"`
	Notional       float64              `json:"notional"`
	NetUnitPrice   float64              `json:"net_unit_price"`
	NetNotional    float64              `json:"net_notional"`
	Position       int                  `json:"position"`     // 1-based rank; 0 = unknown
	TotalOrders    int                  `json:"total_orders"` // 0 = unknown
	BookAvailable  bool                 `json:"book_available"`
	BestPrice      float64              `json:"best_price"`
	SuggestedPrice float64              `json:"suggested_price"`
	QueueAheadQty  int64                `json:"queue_ahead_qty"`
	AvgDailyVolume float64              `json:"avg_daily_volume"`
	// ETADays is -1 when unknown. A fully-filled order (VolumeRemain 0)
	// also reports -1 even with known liquidity: there is nothing left to
	// fill, so no finite estimate applies.
	ETADays float64 `json:"eta_days"`
	DaysToExpire   int                  `json:"days_to_expire"` // -1 = unknown
	ExpiresAt      string               `json:"expires_at"`
	Recommendation types.Recommendation `json:"recommendation"`
	Reason         string               `json:"reason"`
}

// Summary aggregates order health for quick triage.
type Summary struct {
	TotalOrders     int     `json:"total_orders"`
	BuyOrders       int     `json:"buy_orders"`
	SellOrders      int     `json:"sell_orders"`
	NeedsReprice    int     `json:"needs_reprice"`
	NeedsCancel     int     `json:"needs_cancel"`
	TotalNotional   float64 `json:"total_notional"`
	MedianETADays   float64 `json:"median_eta_days"`
	WorstETADays    float64 `json:"worst_eta_days"`
	UnknownETACount int     `json:"unknown_eta_count"`
}

// Result is the full order desk payload.
type Result struct {
	Summary  Summary  `json:"summary"`
	Orders   []Row    `json:"orders"`
	Settings Settings `json:"settings"`
}

func normalizeOptions(opt Options) Options {
	opt.SalesTaxPercent = pricing.ClampPercent(opt.SalesTaxPercent)
	opt.BrokerFeePercent = pricing.ClampPercent(opt.BrokerFeePercent)
	if opt.TargetETADays <= 0 {
		opt.TargetETADays = 3
	}
	if opt.WarnExpiryDays <= 0 {
		opt.WarnExpiryDays = 2
	}
	if opt.HistoryWindowDays <= 0 {
		opt.HistoryWindowDays = 7
	}
	if opt.Now.IsZero() {
		opt.Now = time.Now().UTC()
	}
	return opt
}

// Compute builds the order desk for a set of own resting orders against a
// regional book snapshot, per-pair history, and the set of pairs whose book
// could not be fetched.
func Compute(
	ownOrders []types.OwnOrder,
	bookOrders []types.MarketOrder,
	history map[types.PairKey][]types.HistoryEntry,
	unavailable map[types.PairKey]bool,
	opt Options,
) Result {
	opt = normalizeOptions(opt)

	out := Result{
		Orders: []Row{},
		Settings: Settings{
			SalesTaxPercent:   opt.SalesTaxPercent,
			BrokerFeePercent:  opt.BrokerFeePercent,
			TargetETADays:     opt.TargetETADays,
			WarnExpiryDays:    opt.WarnExpiryDays,
			HistoryWindowDays: opt.HistoryWindowDays,
		},
	}
	if len(ownOrders) == 0 {
		return out
	}

	groups := groupBook(bookOrders)
	etaKnown := make([]float64, 0, len(ownOrders))
	out.Orders = make([]Row, 0, len(ownOrders))

	for _, own := range ownOrders {
		row := Row{
			OrderID:       own.OrderID,
			TypeID:        own.TypeID,
			TypeName:      own.TypeName,
			RegionID:      own.RegionID,
			LocationID:    own.LocationID,
			LocationName:  own.LocationName,
			IsBuyOrder:    own.IsBuyOrder,
			Price:         own.Price,
			VolumeRemain:  own.VolumeRemain,
			VolumeTotal:   own.VolumeTotal,
			Notional:      own.Price * float64(own.VolumeRemain),
			ETADays:       -1,
			DaysToExpire:  -1,
			BookAvailable: true,
		}

		if own.IsBuyOrder {
			row.NetUnitPrice = pricing.NetUnitBuy(own.Price, opt.BrokerFeePercent)
		} else {
			row.NetUnitPrice = pricing.NetUnitSell(own.Price, opt.BrokerFeePercent, opt.SalesTaxPercent)
		}
		row.NetNotional = row.NetUnitPrice * float64(own.VolumeRemain)

		if issued, err := time.Parse(time.RFC3339, own.Issued); err == nil {
			expires := issued.AddDate(0, 0, own.Duration)
			row.ExpiresAt = expires.Format(time.RFC3339)
			days := int(math.Ceil(expires.Sub(opt.Now).Hours() / 24))
			if days < 0 {
				days = 0
			}
			row.DaysToExpire = days
		}

		key := types.NewPairKey(own.RegionID, own.TypeID)
		if unavailable[key] {
			// Hard rule: never assume a favorable position without data.
			row.BookAvailable = false
			row.Position = 0
			row.TotalOrders = 0
			row.SuggestedPrice = own.Price
		} else {
			rankAgainstBook(&row, own, groups[groupKeyFor(own)])
		}

		row.AvgDailyVolume = avgDailyVolume(history[key], opt.HistoryWindowDays)
		if row.AvgDailyVolume > 0 && row.VolumeRemain > 0 {
			row.ETADays = (float64(row.QueueAheadQty) + float64(row.VolumeRemain)) / row.AvgDailyVolume
			etaKnown = append(etaKnown, row.ETADays)
		}

		row.Recommendation, row.Reason = recommend(row, opt)
		out.Orders = append(out.Orders, row)
	}

	for _, row := range out.Orders {
		out.Summary.TotalOrders++
		out.Summary.TotalNotional += row.Notional
		if row.IsBuyOrder {
			out.Summary.BuyOrders++
		} else {
			out.Summary.SellOrders++
		}
		switch row.Recommendation {
		case types.RecommendReprice:
			out.Summary.NeedsReprice++
		case types.RecommendCancel:
			out.Summary.NeedsCancel++
		}
		if row.ETADays < 0 {
			out.Summary.UnknownETACount++
		}
	}
	for _, eta := range etaKnown {
		if eta > out.Summary.WorstETADays {
			out.Summary.WorstETADays = eta
		}
	}
	out.Summary.MedianETADays = stat.Median(etaKnown)

	sortForTriage(out.Orders)
	return out
}

type groupKey struct {
	locationID int64
	typeID     int32
	isBuy      bool
}

func groupKeyFor(o types.OwnOrder) groupKey {
	return groupKey{locationID: o.LocationID, typeID: o.TypeID, isBuy: o.IsBuyOrder}
}

func groupBook(orders []types.MarketOrder) map[groupKey][]types.MarketOrder {
	groups := make(map[groupKey][]types.MarketOrder)
	for _, o := range orders {
		k := groupKey{locationID: o.LocationID, typeID: o.TypeID, isBuy: o.IsBuyOrder}
		groups[k] = append(groups[k], o)
	}
	return groups
}

// rankAgainstBook fills position, queue-ahead volume, best price and the
// suggested reprice for one own order among its competing group. Sell orders
// rank ascending by price, buy orders descending; equal prices tie-break by
// ascending order ID, which upstream assigns in issue order.
func rankAgainstBook(row *Row, own types.OwnOrder, competing []types.MarketOrder) {
	if len(competing) == 0 {
		// Alone in the book: rank 1 of 1, keep the current price.
		row.Position = 1
		row.TotalOrders = 1
		row.BestPrice = own.Price
		row.SuggestedPrice = own.Price
		return
	}

	sorted := make([]types.MarketOrder, len(competing))
	copy(sorted, competing)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Price == sorted[j].Price {
			return sorted[i].OrderID < sorted[j].OrderID
		}
		if own.IsBuyOrder {
			return sorted[i].Price > sorted[j].Price
		}
		return sorted[i].Price < sorted[j].Price
	})

	row.BestPrice = sorted[0].Price

	pos := 1
	var queueAhead int64
	found := false
	for _, o := range sorted {
		if o.OrderID == own.OrderID {
			found = true
			break
		}
		queueAhead += o.VolumeRemain
		pos++
	}
	if !found {
		// The snapshot may predate our own order; rank by price alone.
		pos = 1
		queueAhead = 0
		for _, o := range sorted {
			if betterPrice(own.IsBuyOrder, o.Price, own.Price) {
				queueAhead += o.VolumeRemain
				pos++
			}
		}
	}
	row.Position = pos
	row.QueueAheadQty = queueAhead
	row.TotalOrders = len(sorted)
	if !found {
		row.TotalOrders++
	}

	if row.Position == 1 {
		row.SuggestedPrice = own.Price
	} else if own.IsBuyOrder {
		row.SuggestedPrice = pricing.ImproveBid(row.BestPrice, pricing.DefaultTick)
	} else {
		row.SuggestedPrice = pricing.ImproveAsk(row.BestPrice, pricing.DefaultTick)
	}
}

func betterPrice(isBuy bool, a, b float64) bool {
	if isBuy {
		return a > b
	}
	return a < b
}

// avgDailyVolume averages traded volume over a fixed calendar window
// anchored at the latest history date. The upstream source omits days with
// zero trades, so the divisor is the window width, not the entry count;
// missing days implicitly contribute zero.
func avgDailyVolume(entries []types.HistoryEntry, windowDays int) float64 {
	if len(entries) == 0 || windowDays <= 0 {
		return 0
	}
	volByDate := make(map[string]float64, len(entries))
	latest := ""
	for _, e := range entries {
		if e.Date == "" {
			continue
		}
		if e.Date > latest {
			latest = e.Date
		}
		if e.Volume > 0 {
			volByDate[e.Date] += float64(e.Volume)
		}
	}
	if latest == "" {
		return 0
	}
	end, err := time.Parse("2006-01-02", latest)
	if err != nil {
		return 0
	}
	total := 0.0
	for i := 0; i < windowDays; i++ {
		total += volByDate[end.AddDate(0, 0, -i).Format("2006-01-02")]
	}
	return total / float64(windowDays)
}

// recommend applies the decision ladder in priority order; first match wins.
func recommend(row Row, opt Options) (types.Recommendation, string) {
	if !row.BookAvailable {
		return types.RecommendHold, "book unavailable"
	}
	if row.ETADays < 0 && row.DaysToExpire >= 0 && row.DaysToExpire <= opt.WarnExpiryDays {
		return types.RecommendCancel, "unknown liquidity near expiry"
	}
	if row.Position > 1 && (row.ETADays < 0 || row.ETADays > opt.TargetETADays) {
		if row.ETADays < 0 {
			return types.RecommendReprice, "behind queue, liquidity unknown"
		}
		return types.RecommendReprice, "eta above target"
	}
	if row.ETADays < 0 {
		return types.RecommendHold, "insufficient liquidity history"
	}
	if row.Position == 1 && row.ETADays > opt.TargetETADays*2 {
		return types.RecommendHold, "top of book but slow market"
	}
	return types.RecommendHold, "on track"
}

// sortForTriage orders rows so the most actionable come first: cancels, then
// reprices, then holds; within an action the worst known ETA first, unknown
// ETA last, bigger notional breaking ties.
func sortForTriage(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		pi := rows[i].Recommendation.Priority()
		pj := rows[j].Recommendation.Priority()
		if pi != pj {
			return pi < pj
		}
		if rows[i].ETADays == rows[j].ETADays {
			return rows[i].Notional > rows[j].Notional
		}
		if rows[i].ETADays < 0 {
			return false
		}
		if rows[j].ETADays < 0 {
			return true
		}
		return rows[i].ETADays > rows[j].ETADays
	})
}
