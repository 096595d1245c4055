// Package pricing provides tick and fee arithmetic for order prices.
// Prices cross the engine as float64, but cent-level adjustments (one-tick
// price improvements, fee multipliers) are computed in decimal so repeated
// adjustments never drift.
package pricing

import "github.com/shopspring/decimal"

// DefaultTick is the smallest valid price increment on the market.
var DefaultTick = decimal.RequireFromString("0.01")

// ImproveAsk returns the price one tick below the best competing ask,
// i.e. the cheapest improvement that puts a sell order at the front of the
// queue. The result never drops below one tick.
func ImproveAsk(bestAsk float64, tick decimal.Decimal) float64 {
	if tick.IsZero() || tick.IsNegative() {
		tick = DefaultTick
	}
	p := decimal.NewFromFloat(bestAsk).Sub(tick)
	if p.LessThan(tick) {
		p = tick
	}
	return p.InexactFloat64()
}

// ImproveBid returns the price one tick above the best competing bid.
func ImproveBid(bestBid float64, tick decimal.Decimal) float64 {
	if tick.IsZero() || tick.IsNegative() {
		tick = DefaultTick
	}
	return decimal.NewFromFloat(bestBid).Add(tick).InexactFloat64()
}

// ClampPercent limits a fee percentage to the [0, 100] range.
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NetUnitSell returns the per-unit proceeds of a sell order after broker fee
// and sales tax. Never negative.
func NetUnitSell(price, brokerFeePercent, salesTaxPercent float64) float64 {
	fee := decimal.NewFromFloat(ClampPercent(brokerFeePercent)).
		Add(decimal.NewFromFloat(ClampPercent(salesTaxPercent))).
		Div(decimal.NewFromInt(100))
	mult := decimal.NewFromInt(1).Sub(fee)
	if mult.IsNegative() {
		return 0
	}
	return decimal.NewFromFloat(price).Mul(mult).InexactFloat64()
}

// NetUnitBuy returns the per-unit cost of a buy order including broker fee.
func NetUnitBuy(price, brokerFeePercent float64) float64 {
	mult := decimal.NewFromInt(1).
		Add(decimal.NewFromFloat(ClampPercent(brokerFeePercent)).Div(decimal.NewFromInt(100)))
	return decimal.NewFromFloat(price).Mul(mult).InexactFloat64()
}
