// Copyright (c) 2025 BVK Chaitanya

// Package quoter derives two-sided market-making quotes from a reference
// price and the account inventory. Compute is a pure function of its
// snapshot inputs and is safe to call on every tick.
package quoter

import (
	"fmt"

	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/order"
	"github.com/shopspring/decimal"
)

// Quote is one side of a two-sided quote. Price and amount are fixed-point
// strings already truncated to the market's precision. An empty quote
// means "do not place this side".
type Quote struct {
	Side   exchange.Side
	Price  string
	Amount string
}

func (q Quote) Empty() bool {
	return len(q.Price) == 0 && len(q.Amount) == 0
}

func (q Quote) String() string {
	if q.Empty() {
		return q.Side.String() + ":empty"
	}
	return fmt.Sprintf("%s:%s@%s", q.Side, q.Amount, q.Price)
}

// Params holds the strategy knobs.
type Params struct {
	// Spread is the half-spread applied on both sides of the reference
	// price, e.g. 0.0005 for five basis points.
	Spread decimal.Decimal

	// InventoryRatio is the fraction of holdings risked per refresh.
	InventoryRatio decimal.Decimal

	// MinAmount suppresses dust: a side whose raw (pre-rounding) amount is
	// below this value is left empty.
	MinAmount decimal.Decimal
}

func (p *Params) SetDefaults() {
	if p.Spread.IsZero() {
		p.Spread = decimal.NewFromFloat(0.0005)
	}
	if p.InventoryRatio.IsZero() {
		p.InventoryRatio = decimal.NewFromFloat(0.8)
	}
	if p.MinAmount.IsZero() {
		p.MinAmount = decimal.NewFromFloat(0.001)
	}
}

func (p *Params) Check() error {
	one := decimal.NewFromInt(1)
	if !p.Spread.IsPositive() || p.Spread.GreaterThanOrEqual(one) {
		return fmt.Errorf("spread %s must be in (0,1)", p.Spread)
	}
	if !p.InventoryRatio.IsPositive() || p.InventoryRatio.GreaterThan(one) {
		return fmt.Errorf("inventory ratio %s must be in (0,1]", p.InventoryRatio)
	}
	if p.MinAmount.IsNegative() {
		return fmt.Errorf("min amount %s cannot be negative", p.MinAmount)
	}
	return nil
}

// Result is the output of one Compute call. When Changed is false the
// previous orders must be left untouched at the engine.
type Result struct {
	Changed bool

	Bid Quote
	Ask Quote
}

// Compute derives the new bid/ask quote pair.
//
// Prices move away from refPrice by the configured spread and sizes risk
// the configured fraction of each holding. Both pairs are truncated to the
// market precision. A side whose raw amount is below MinAmount comes out
// empty. When both rounded prices equal the previous quote's prices the
// result is flagged unchanged, even if the amounts drifted; comparing
// prices only is the intended anti-churn behavior for price-stable
// markets.
func Compute(market *exchange.Market, params *Params, refPrice, baseBalance, quoteBalance decimal.Decimal, prevBid, prevAsk Quote) (*Result, error) {
	if err := params.Check(); err != nil {
		return nil, err
	}
	if !refPrice.IsPositive() {
		return nil, fmt.Errorf("reference price %s must be positive", refPrice)
	}
	if baseBalance.IsNegative() || quoteBalance.IsNegative() {
		return nil, fmt.Errorf("balances %s/%s cannot be negative", baseBalance, quoteBalance)
	}

	one := decimal.NewFromInt(1)
	askPriceRaw := refPrice.Mul(one.Add(params.Spread))
	bidPriceRaw := refPrice.Mul(one.Sub(params.Spread))

	bidAmountRaw := quoteBalance.Mul(params.InventoryRatio).Div(bidPriceRaw)
	askAmountRaw := baseBalance.Mul(params.InventoryRatio)

	askAmount, askPrice := order.Round(market, askAmountRaw, askPriceRaw)
	bidAmount, bidPrice := order.Round(market, bidAmountRaw, bidPriceRaw)

	// Dust filtering looks at the raw amounts so that a value that only
	// reaches the minimum through truncation artifacts is still dropped.
	bid := Quote{Side: exchange.SideBid, Price: bidPrice, Amount: bidAmount}
	if bidAmountRaw.LessThan(params.MinAmount) {
		bid = Quote{Side: exchange.SideBid}
	}
	ask := Quote{Side: exchange.SideAsk, Price: askPrice, Amount: askAmount}
	if askAmountRaw.LessThan(params.MinAmount) {
		ask = Quote{Side: exchange.SideAsk}
	}

	result := &Result{Bid: bid, Ask: ask}
	if bid.Price == prevBid.Price && ask.Price == prevAsk.Price {
		return result, nil
	}
	result.Changed = true
	return result, nil
}
