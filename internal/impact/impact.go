// Package impact calibrates price-impact models from daily history and
// recommends how to slice a large order over time.
//
// Two complementary estimators are fit: Kyle's lambda (linear impact per
// unit of net signed flow) and the square-root law eta (impact per sqrt of
// traded volume), plus the daily return variance used as a timing-risk
// penalty when choosing a slice count.
package impact

import (
	"math"
	"sort"

	"github.com/quantdesk/quantdesk/internal/book"
	"github.com/quantdesk/quantdesk/internal/types"
	"github.com/quantdesk/quantdesk/pkg/stat"
)

// DailyPoint is one day of close price and volume.
//
// SignedVolume is expected to be the net signed flow (buy volume minus sell
// volume). Callers that only observe total traded volume may supply it
// unsigned; that degrades the lambda fit but not eta, which only uses the
// volume magnitude.
type DailyPoint struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	Close        float64 `json:"close"`
	SignedVolume float64 `json:"signed_volume"`
}

// Params holds the calibrated impact model for one (region, type) pair.
// A zero DaysUsed means the history was too sparse to calibrate and every
// coefficient must be treated as absent, not as zero impact.
type Params struct {
	Lambda   float64 `json:"lambda"`    // price change per unit of net flow
	Eta      float64 `json:"eta"`       // price change per sqrt(volume)
	SigmaSq  float64 `json:"sigma_sq"`  // daily log-return variance
	RefPrice float64 `json:"ref_price"` // mean close over the window
	DaysUsed int     `json:"days_used"`
}

// Estimate annotates an execution plan with the calibrated model.
type Estimate struct {
	Params
	RecommendedImpact float64 `json:"recommended_impact"`
	OptimalSlicesTWAP int     `json:"optimal_slices_twap"`
	MinGapMinutes     int     `json:"min_gap_minutes"`
}

// minCalibrationDays is the fewest data points a fit is allowed to use.
// Below it the regression slopes are noise, so zero-valued params are
// returned instead.
const minCalibrationDays = 5

// lambdaFloor separates a usable lambda from a near-zero or negative one.
const lambdaFloor = 1e-12

// urgencyRiskWeight scales the timing-risk penalty at urgency 1 relative
// to urgency 0.
const urgencyRiskWeight = 9.0

// PointsFromHistory converts daily history rows into calibration points.
// The upstream series carries only total traded volume, so the points are
// unsigned and lambda degrades accordingly.
func PointsFromHistory(entries []types.HistoryEntry) []DailyPoint {
	points := make([]DailyPoint, 0, len(entries))
	for _, e := range entries {
		if e.Average <= 0 {
			continue
		}
		points = append(points, DailyPoint{
			Date:         e.Date,
			Close:        e.Average,
			SignedVolume: float64(e.Volume),
		})
	}
	return points
}

// Calibrate fits the impact model over at most lookbackDays of the most
// recent history. Consecutive entries are treated as consecutive trading
// days; the upstream source omits zero-volume days, so price changes span
// the gap.
func Calibrate(history []DailyPoint, lookbackDays int) Params {
	points := make([]DailyPoint, 0, len(history))
	for _, p := range history {
		if p.Close > 0 && p.Date != "" {
			points = append(points, p)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	if lookbackDays > 0 && len(points) > lookbackDays {
		points = points[len(points)-lookbackDays:]
	}
	if len(points) < minCalibrationDays {
		return Params{}
	}

	var (
		closes     = make([]float64, 0, len(points))
		deltas     = make([]float64, 0, len(points)-1)
		absDeltas  = make([]float64, 0, len(points)-1)
		flows      = make([]float64, 0, len(points)-1)
		sqrtVols   = make([]float64, 0, len(points)-1)
		logReturns = make([]float64, 0, len(points)-1)
	)
	for i, p := range points {
		closes = append(closes, p.Close)
		if i == 0 {
			continue
		}
		d := p.Close - points[i-1].Close
		deltas = append(deltas, d)
		absDeltas = append(absDeltas, math.Abs(d))
		flows = append(flows, p.SignedVolume)
		sqrtVols = append(sqrtVols, math.Sqrt(math.Abs(p.SignedVolume)))
		logReturns = append(logReturns, math.Log(p.Close/points[i-1].Close))
	}

	return Params{
		Lambda:   stat.Slope(flows, deltas),
		Eta:      stat.SlopeThroughOrigin(sqrtVols, absDeltas),
		SigmaSq:  stat.SampleVariance(logReturns),
		RefPrice: stat.Mean(closes),
		DaysUsed: len(points),
	}
}

// RecommendedImpact estimates the price impact, in currency units, of
// executing quantity immediately. The square-root law is preferred whenever
// lambda is near zero or negative, since it degrades more gracefully on
// small or noisy samples.
func RecommendedImpact(p Params, quantity int64) float64 {
	if quantity <= 0 || p.DaysUsed == 0 {
		return 0
	}
	if p.Lambda <= lambdaFloor {
		return p.Eta * math.Sqrt(float64(quantity))
	}
	return p.Lambda * float64(quantity)
}

// OptimalSliceCount picks the number of time-sliced sub-orders minimizing
// total execution cost: impact falls as slices shrink, timing risk grows as
// the horizon stretches. urgency is a dial from 0 (patient) to 1 (urgent)
// that weights the risk term and pushes toward fewer, larger slices.
func OptimalSliceCount(p Params, quantity int64, urgency float64) (n, minGapMinutes int) {
	if quantity <= 0 || p.DaysUsed == 0 {
		return 1, 0
	}
	if urgency < 0 {
		urgency = 0
	}
	if urgency > 1 {
		urgency = 1
	}

	q := float64(quantity)
	lambda := math.Max(p.Lambda, 0)
	eta := math.Max(p.Eta, 0)
	sigma := math.Max(p.SigmaSq, 0)
	riskWeight := 1 + urgencyRiskWeight*urgency

	best := 1
	bestCost := math.Inf(1)
	for c := 1; c <= 20; c++ {
		impactCost := lambda*q*q/float64(c) + eta*q*math.Sqrt(q/float64(c))
		horizonDays := float64(c) * float64(book.GapMinutes(c)) / (24 * 60)
		riskCost := riskWeight * p.RefPrice * q * math.Sqrt(sigma*horizonDays)
		if cost := impactCost + riskCost; cost < bestCost {
			bestCost = cost
			best = c
		}
	}
	return best, book.GapMinutes(best)
}

// NewEstimate bundles calibrated params with the derived recommendations
// for annotating an execution plan.
func NewEstimate(p Params, quantity int64, urgency float64) Estimate {
	slices, gap := OptimalSliceCount(p, quantity, urgency)
	return Estimate{
		Params:            p,
		RecommendedImpact: RecommendedImpact(p, quantity),
		OptimalSlicesTWAP: slices,
		MinGapMinutes:     gap,
	}
}
