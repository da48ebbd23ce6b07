// Copyright (c) 2025 BVK Chaitanya

// Package depth estimates the execution outcome of hypothetical market
// orders against an order-book snapshot. All operations are pure functions
// over the caller's snapshot; the snapshot is never modified.
package depth

import (
	"github.com/shopspring/decimal"
)

// PriceLevel is one resting price level of an order book.
type PriceLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Snapshot is a point-in-time copy of the order book. Bids are ordered
// best-to-worst (highest price first) and asks worst-to-best mirrored
// (lowest price first), which is how the engine serves them.
type Snapshot struct {
	Bids []*PriceLevel
	Asks []*PriceLevel
}

// FillEstimate describes what a market order walking the book would
// execute. When the book is thinner than the requested size the estimate
// reflects a partial fill; callers detect it by comparing the filled
// values against their target.
type FillEstimate struct {
	FilledBase  decimal.Decimal
	FilledQuote decimal.Decimal

	// BestPrice is the first level touched and WorstPrice the last level
	// actually consumed. Both are zero for an empty book.
	BestPrice  decimal.Decimal
	WorstPrice decimal.Decimal
}

// AvgPrice returns the volume-weighted execution price. The second result
// is false when nothing was filled, in which case the average price is
// undefined.
func (v *FillEstimate) AvgPrice() (decimal.Decimal, bool) {
	if v.FilledBase.IsZero() {
		return decimal.Decimal{}, false
	}
	return v.FilledQuote.Div(v.FilledBase), true
}

// EstimateSell walks the bid side and reports the outcome of selling up to
// targetBase of the base asset. FilledBase never exceeds targetBase; it
// falls short when the book runs out of depth.
func EstimateSell(book *Snapshot, targetBase decimal.Decimal) *FillEstimate {
	est := new(FillEstimate)
	if len(book.Bids) == 0 || !targetBase.IsPositive() {
		return est
	}
	est.BestPrice = book.Bids[0].Price
	for _, level := range book.Bids {
		amount := level.Amount
		if est.FilledBase.Add(amount).GreaterThan(targetBase) {
			amount = targetBase.Sub(est.FilledBase)
		}
		est.FilledBase = est.FilledBase.Add(amount)
		est.FilledQuote = est.FilledQuote.Add(amount.Mul(level.Price))
		est.WorstPrice = level.Price
		if est.FilledBase.GreaterThanOrEqual(targetBase) {
			break
		}
	}
	return est
}

// EstimateBuy walks the ask side and reports the outcome of spending up to
// targetQuote of the quote asset. FilledQuote never exceeds targetQuote and
// FilledBase is the amount of base the spend buys.
func EstimateBuy(book *Snapshot, targetQuote decimal.Decimal) *FillEstimate {
	est := new(FillEstimate)
	if len(book.Asks) == 0 || !targetQuote.IsPositive() {
		return est
	}
	est.BestPrice = book.Asks[0].Price
	for _, level := range book.Asks {
		amount := level.Amount
		quote := amount.Mul(level.Price)
		if remaining := targetQuote.Sub(est.FilledQuote); quote.GreaterThan(remaining) {
			// The division can round, so charge the exact remainder
			// rather than re-multiplying the rounded amount.
			amount = remaining.Div(level.Price)
			quote = remaining
		}
		est.FilledBase = est.FilledBase.Add(amount)
		est.FilledQuote = est.FilledQuote.Add(quote)
		est.WorstPrice = level.Price
		if est.FilledQuote.GreaterThanOrEqual(targetQuote) {
			break
		}
	}
	return est
}
