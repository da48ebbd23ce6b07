// Copyright (c) 2025 BVK Chaitanya

package mmbot

import (
	"context"
	"fmt"
	"log"

	"github.com/bvk/mmbot/depth"
	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/order"
	"github.com/shopspring/decimal"
)

// ErrInsufficientLiquidity indicates the book cannot absorb a rebalance
// order of the requested size.
var ErrInsufficientLiquidity = fmt.Errorf("insufficient liquidity in the order book")

// rebalance restores the inventory when one side of the holdings runs dry.
// Rebalance orders are aggressively priced limit orders that cross the
// book, with a price band so a thin book cannot fill them at any price.
func (b *Bot) rebalance(ctx context.Context, base, quote exchange.Balance) error {
	if b.opts.BaseLowLimit.IsPositive() && base.Total().LessThan(b.opts.BaseLowLimit) {
		return b.buyBase(ctx)
	}
	if b.opts.QuoteLowLimit.IsPositive() && quote.Total().LessThan(b.opts.QuoteLowLimit) {
		return b.sellBase(ctx)
	}
	return nil
}

func (b *Bot) buyBase(ctx context.Context) error {
	book, err := b.ex.QueryDepth(ctx, b.market.Name, 0, "0")
	if err != nil {
		return err
	}
	est := depth.EstimateBuy(book, b.opts.QuoteSpendAmount)
	if est.FilledBase.IsZero() {
		return fmt.Errorf("cannot buy %s worth of %s: %w", b.opts.QuoteSpendAmount, b.market.Base, ErrInsufficientLiquidity)
	}
	// Allow 10% slippage past the estimated worst fill price.
	limit := est.WorstPrice.Mul(decimal.RequireFromString("1.1"))
	log.Printf("%s: rebalancing %s %s at limup %s", b, b.market.Base, est.FilledBase, limit)
	return b.placeRebalance(ctx, exchange.SideBid, est.FilledBase, limit)
}

func (b *Bot) sellBase(ctx context.Context) error {
	book, err := b.ex.QueryDepth(ctx, b.market.Name, 0, "0")
	if err != nil {
		return err
	}
	est := depth.EstimateSell(book, b.opts.BaseSellAmount)
	if est.FilledBase.IsZero() {
		return fmt.Errorf("cannot sell %s of %s: %w", b.opts.BaseSellAmount, b.market.Base, ErrInsufficientLiquidity)
	}
	limit := est.WorstPrice.Mul(decimal.RequireFromString("0.9"))
	log.Printf("%s: rebalancing %s %s at limdown %s", b, b.market.Base, est.FilledBase, limit)
	return b.placeRebalance(ctx, exchange.SideAsk, est.FilledBase, limit)
}

func (b *Bot) placeRebalance(ctx context.Context, side exchange.Side, amount, price decimal.Decimal) error {
	signed, err := b.builder.Build(&order.Request{
		UserID: b.state.UserID,
		Market: b.market.Name,
		Side:   side,
		Type:   exchange.TypeLimit,
		Amount: amount,
		Price:  price,
	})
	if err != nil {
		return err
	}
	if _, err := b.ex.Submit(ctx, signed, b.nextClientOrderID()); err != nil {
		return err
	}
	return nil
}
