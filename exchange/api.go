// Copyright (c) 2025 BVK Chaitanya

// Package exchange defines the data types and collaborator interfaces for
// the remote matching-engine service. The trade-intent pipeline (depth,
// quoter and order packages) consumes these types, but never performs any
// network operations itself; fetching and caching is the caller's job.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/bvk/mmbot/depth"
	"github.com/shopspring/decimal"
)

type OrderID string

// Side values use the wire encoding of the matching engine.
type Side int32

const (
	SideAsk Side = 0
	SideBid Side = 1
)

func (s Side) String() string {
	if s == SideBid {
		return "BID"
	}
	return "ASK"
}

type OrderType int32

const (
	TypeLimit  OrderType = 0
	TypeMarket OrderType = 1
)

func (t OrderType) String() string {
	if t == TypeMarket {
		return "MARKET"
	}
	return "LIMIT"
}

// Market holds per-market metadata required for precision normalization.
// Markets are loaded from the engine once at startup and are read-only
// afterwards.
type Market struct {
	Name string

	Base  string
	Quote string

	// Number of decimal digits allowed for order amounts and prices. Values
	// with more digits must be truncated before submission.
	AmountPrecision int32
	PricePrecision  int32

	// MinAmount is the smallest order size the engine accepts.
	MinAmount decimal.Decimal
}

func (m *Market) Check() error {
	if len(m.Name) == 0 {
		return fmt.Errorf("market name cannot be empty")
	}
	if len(m.Base) == 0 || len(m.Quote) == 0 {
		return fmt.Errorf("market %q base/quote assets cannot be empty", m.Name)
	}
	if m.AmountPrecision < 0 || m.PricePrecision < 0 {
		return fmt.Errorf("market %q precisions cannot be negative", m.Name)
	}
	if m.MinAmount.IsNegative() {
		return fmt.Errorf("market %q min-amount cannot be negative", m.Name)
	}
	return nil
}

// Asset maps an asset symbol to its numeric id on the settlement layer.
// The id picks the buy/sell token legs when signing an order.
type Asset struct {
	Symbol  string
	InnerID uint32
}

// Balance is a read-only snapshot of one asset in one account. The engine
// owns the authoritative value; it changes only through submitted orders
// and transfers observed asynchronously.
type Balance struct {
	Available decimal.Decimal
	Frozen    decimal.Decimal
}

func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Frozen)
}

// Order is the engine's view of a resting order.
type Order struct {
	ID OrderID

	Market string
	Side   Side
	Type   OrderType

	Amount decimal.Decimal
	Price  decimal.Decimal

	FilledBase  decimal.Decimal
	FilledQuote decimal.Decimal

	CreateTime time.Time
}

// Metadata lists markets and assets. Implementations fetch from the remote
// engine; callers load once and cache.
type Metadata interface {
	ListMarkets(ctx context.Context) ([]*Market, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
}

// Balances reports per-asset balances for an account.
type Balances interface {
	QueryBalance(ctx context.Context, userID int64) (map[string]Balance, error)
}

// Depth returns an order-book snapshot with at most limit levels per side,
// merged at the given price interval.
type Depth interface {
	QueryDepth(ctx context.Context, market string, limit int, interval string) (*depth.Snapshot, error)
}

// Trading submits and cancels orders. Submit is fire-and-forget from the
// pipeline's point of view: a failure is returned to the caller who may
// retry the whole tick, never the individual call.
type Trading interface {
	OpenOrders(ctx context.Context, userID int64, market string) ([]*Order, error)
	Cancel(ctx context.Context, userID int64, market string, id OrderID) error
	CancelAll(ctx context.Context, userID int64, market string) error
}

// Exchange is the full collaborator surface of the remote engine.
type Exchange interface {
	Metadata
	Balances
	Depth
	Trading
}
