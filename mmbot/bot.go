// Copyright (c) 2025 BVK Chaitanya

// Package mmbot implements a two-sided market-maker bot around an external
// reference price. Each bot owns its full strategy state; nothing is shared
// between bots through globals.
package mmbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"sync"
	"time"

	"github.com/bvk/mmbot/ctxutil"
	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/gobs"
	"github.com/bvk/mmbot/idgen"
	"github.com/bvk/mmbot/kvutil"
	"github.com/bvk/mmbot/order"
	"github.com/bvk/mmbot/quoter"
	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

const DefaultKeyspace = "/mmbots/"

// Exchange is the engine surface the bot needs. The engine client
// satisfies it; tests use fakes.
type Exchange interface {
	exchange.Balances
	exchange.Depth
	exchange.Trading

	Submit(ctx context.Context, signed *order.SignedOrder, clientOrderID string) (*exchange.Order, error)
}

// PriceSource supplies the external reference price for a symbol.
type PriceSource interface {
	Get(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Notifier delivers operator alerts. May be nil, in which case alerts are
// only logged.
type Notifier interface {
	SendMessage(ctx context.Context, at time.Time, text string) error
}

type Options struct {
	// TickInterval is the pause between strategy refreshes.
	TickInterval time.Duration

	// PriceSymbol names the external price symbol, e.g. "ETH". Defaults
	// to the market's base asset symbol.
	PriceSymbol string

	Params quoter.Params

	// BaseAlertLimit and QuoteAlertLimit trigger the low-balance alert
	// when the available balance drops below them. Zero disables.
	BaseAlertLimit  decimal.Decimal
	QuoteAlertLimit decimal.Decimal

	// BaseLowLimit triggers an inventory rebalance buy when the base
	// holding drops below it; QuoteSpendAmount is the quote budget for
	// that buy. QuoteLowLimit/BaseSellAmount mirror it on the other side.
	// Zero limits disable rebalancing.
	BaseLowLimit     decimal.Decimal
	QuoteSpendAmount decimal.Decimal
	QuoteLowLimit    decimal.Decimal
	BaseSellAmount   decimal.Decimal
}

func (v *Options) setDefaults(market *exchange.Market) {
	if v.TickInterval == 0 {
		v.TickInterval = 10 * time.Second
	}
	if len(v.PriceSymbol) == 0 {
		v.PriceSymbol = market.Base
	}
	v.Params.SetDefaults()
}

func (v *Options) Check() error {
	if v.TickInterval < time.Second {
		return fmt.Errorf("tick interval %s is too small", v.TickInterval)
	}
	if err := v.Params.Check(); err != nil {
		return err
	}
	if v.BaseLowLimit.IsPositive() && !v.QuoteSpendAmount.IsPositive() {
		return fmt.Errorf("quote spend amount is required with a base low limit")
	}
	if v.QuoteLowLimit.IsPositive() && !v.BaseSellAmount.IsPositive() {
		return fmt.Errorf("base sell amount is required with a quote low limit")
	}
	return nil
}

type Bot struct {
	uid string

	opts Options

	market *exchange.Market

	ex      Exchange
	builder *order.Builder
	prices  PriceSource

	notifier Notifier

	// state is owned by the Run goroutine; it is never accessed
	// concurrently.
	state *gobs.BotState

	// idgen derives deterministic client order ids from the bot uid so a
	// restarted bot continues its sequence instead of reusing ids.
	idgen *idgen.Generator

	alertFreezeDeadlineMap map[string]time.Time

	// statusMu guards status, which the telegram status command reads
	// from its own goroutine.
	statusMu sync.Mutex
	status   string
}

// New creates a market-maker bot for one user on one market. A previously
// persisted state under the same uid is reloaded so the anti-churn
// comparison survives restarts.
func New(ctx context.Context, db kv.Database, uid string, userID int64, market *exchange.Market, ex Exchange, builder *order.Builder, prices PriceSource, opts *Options) (*Bot, error) {
	if len(uid) == 0 {
		return nil, fmt.Errorf("bot uid cannot be empty: %w", os.ErrInvalid)
	}
	if err := market.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults(market)
	if err := opts.Check(); err != nil {
		return nil, err
	}

	state, err := kvutil.GetDB[gobs.BotState](ctx, db, stateKey(uid))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		state = &gobs.BotState{
			UID:    uid,
			UserID: userID,
			Market: market.Name,
		}
	}
	if state.UserID != userID || state.Market != market.Name {
		return nil, fmt.Errorf("bot %s state belongs to user %d on market %s: %w", uid, state.UserID, state.Market, os.ErrInvalid)
	}

	b := &Bot{
		uid:     uid,
		opts:    *opts,
		market:  market,
		ex:      ex,
		builder: builder,
		prices:  prices,
		state:   state,
		idgen:   idgen.New(uid, state.IDOffset),

		alertFreezeDeadlineMap: make(map[string]time.Time),
	}
	return b, nil
}

func stateKey(uid string) string {
	return path.Join(DefaultKeyspace, uid)
}

func (b *Bot) String() string {
	return "mmbot:" + b.uid
}

func (b *Bot) UID() string {
	return b.uid
}

// SetNotifier attaches an alert transport. Must be called before Run.
func (b *Bot) SetNotifier(n Notifier) {
	b.notifier = n
}

func (b *Bot) updateStatus(tickErr error) {
	s := fmt.Sprintf("market %s ticks %d resets %d %s %s",
		b.market.Name, b.state.TickCount, b.state.ResetCount, botQuote(b.state.LastBid), botQuote(b.state.LastAsk))
	if tickErr != nil {
		s += " last-error " + tickErr.Error()
	}
	b.statusMu.Lock()
	b.status = s
	b.statusMu.Unlock()
}

// Status prints a one-line summary of the bot's last tick. It is exposed
// as a telegram command, so it can run concurrently with the tick loop.
func (b *Bot) Status(ctx context.Context, _ []string) error {
	b.statusMu.Lock()
	s := b.status
	b.statusMu.Unlock()
	if len(s) == 0 {
		s = "waiting for the first tick"
	}
	fmt.Fprintln(cli.Stdout(ctx), s)
	return nil
}

func (b *Bot) save(ctx context.Context, db kv.Database) error {
	b.state.UpdatedAt = time.Now()
	return kvutil.SetDB(ctx, db, stateKey(b.uid), b.state)
}

// Run drives the bot until the context is canceled. Each tick is
// independent: a failed tick is logged and retried whole on the next
// interval, individual calls are never retried.
func (b *Bot) Run(ctx context.Context, db kv.Database) error {
	log.Printf("%s: starting with spread %s ratio %s on market %s", b, b.opts.Params.Spread, b.opts.Params.InventoryRatio, b.market.Name)

	for ctx.Err() == nil {
		err := b.runTick(ctx)
		if err != nil {
			log.Printf("%s: tick failed (will retry): %v", b, err)
		}
		b.updateStatus(err)
		if err := b.save(ctx, db); err != nil {
			log.Printf("%s: could not save bot state (will retry): %v", b, err)
		}
		ctxutil.Sleep(ctx, b.opts.TickInterval)
	}
	return context.Cause(ctx)
}

func (b *Bot) runTick(ctx context.Context) error {
	b.state.TickCount++

	refPrice, err := b.prices.Get(ctx, b.opts.PriceSymbol)
	if err != nil {
		return fmt.Errorf("could not get reference price for %s: %w", b.opts.PriceSymbol, err)
	}

	balanceMap, err := b.ex.QueryBalance(ctx, b.state.UserID)
	if err != nil {
		return fmt.Errorf("could not query balances: %w", err)
	}
	base := balanceMap[b.market.Base]
	quote := balanceMap[b.market.Quote]

	b.checkLowBalances(ctx, base, quote)

	if err := b.rebalance(ctx, base, quote); err != nil {
		log.Printf("%s: inventory rebalance failed (ignored): %v", b, err)
	}

	result, err := quoter.Compute(b.market, &b.opts.Params, refPrice, base.Total(), quote.Total(), botQuote(b.state.LastBid), botQuote(b.state.LastAsk))
	if err != nil {
		return fmt.Errorf("could not compute quotes: %w", err)
	}
	if !result.Changed {
		return nil
	}

	// Prices moved. Replace resting orders with the new pair.
	if err := b.ex.CancelAll(ctx, b.state.UserID, b.market.Name); err != nil {
		return fmt.Errorf("could not cancel open orders: %w", err)
	}
	b.state.ResetCount++

	// Record a side only when its placement succeeded. A failed side is
	// cleared from state so the next tick sees a price change and places
	// the pair again even when the reference price holds still.
	if err := b.place(ctx, result.Bid); err != nil {
		log.Printf("%s: could not place bid %s (next tick retries): %v", b, result.Bid, err)
		b.state.LastBid = gobs.Quote{}
	} else {
		b.state.LastBid = gobQuote(result.Bid)
	}
	if err := b.place(ctx, result.Ask); err != nil {
		log.Printf("%s: could not place ask %s (next tick retries): %v", b, result.Ask, err)
		b.state.LastAsk = gobs.Quote{}
	} else {
		b.state.LastAsk = gobQuote(result.Ask)
	}
	log.Printf("%s: tick %d quoted bid %s ask %s at ref %s", b, b.state.TickCount, result.Bid, result.Ask, refPrice)
	return nil
}

func (b *Bot) place(ctx context.Context, q quoter.Quote) error {
	if q.Empty() {
		return nil
	}
	signed, err := b.builder.Build(&order.Request{
		UserID: b.state.UserID,
		Market: b.market.Name,
		Side:   q.Side,
		Type:   exchange.TypeLimit,
		Amount: decimal.RequireFromString(q.Amount),
		Price:  decimal.RequireFromString(q.Price),
	})
	if err != nil {
		return err
	}
	if _, err := b.ex.Submit(ctx, signed, b.nextClientOrderID()); err != nil {
		return err
	}
	return nil
}

func (b *Bot) nextClientOrderID() string {
	id := b.idgen.NextID()
	b.state.IDOffset = b.idgen.Offset()
	return id.String()
}

func botQuote(q gobs.Quote) quoter.Quote {
	return quoter.Quote{
		Side:   exchange.Side(q.Side),
		Price:  q.Price,
		Amount: q.Amount,
	}
}

func gobQuote(q quoter.Quote) gobs.Quote {
	return gobs.Quote{
		Side:   int32(q.Side),
		Price:  q.Price,
		Amount: q.Amount,
	}
}
