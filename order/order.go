// Copyright (c) 2025 BVK Chaitanya

// Package order turns a side/amount/price intent into a precision-normalized,
// signable order descriptor for the matching engine.
//
// Amounts and prices attached to a descriptor are always truncated to the
// market's configured decimal digits and rendered as fixed-point strings.
// The buy/sell token legs are derived from the order side; getting that
// mapping wrong would produce a signature over the wrong economic intent,
// so it is covered by tests for every side and precision boundary.
package order

import (
	"errors"
	"fmt"

	"github.com/bvk/mmbot/exchange"
	"github.com/shopspring/decimal"
)

var (
	// ErrPrecision reports an input that does not round-trip at the
	// market's configured precision when strict checking is requested.
	ErrPrecision = errors.New("value does not round-trip at market precision")

	// ErrInvalidOrder reports a zero or negative amount, or an unknown
	// market or asset.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrNoKey reports that no signing key material is held for the user.
	// Callers that can live with an unsigned order must ask for one
	// explicitly through BuildUnsigned.
	ErrNoKey = errors.New("no signing key for user")
)

// Signer is the opaque signing capability. Key material stays behind the
// implementation; the builder only ever hands over a digest.
type Signer interface {
	CanSign(userID int64) bool
	Sign(userID int64, hash []byte) (string, error)
}

// Descriptor is a fully normalized order ready for submission. It is
// immutable once constructed; ownership transfers to the transport client.
type Descriptor struct {
	UserID int64

	Market string
	Side   exchange.Side
	Type   exchange.OrderType

	// Fixed-point strings truncated to the market's precision.
	Amount string
	Price  string

	TakerFee string
	MakerFee string
}

// SignedOrder is a descriptor plus the signature over its intent digest.
type SignedOrder struct {
	Descriptor

	Signature string
}

// UnsignedIntent is a descriptor built without a signature. The transport
// rejects it wherever the engine requires signed orders, so a caller can
// never submit one by mistake.
type UnsignedIntent struct {
	Descriptor
}

// Request carries the inputs for one build call.
type Request struct {
	UserID int64

	Market string
	Side   exchange.Side
	Type   exchange.OrderType

	Amount decimal.Decimal
	Price  decimal.Decimal

	TakerFee string
	MakerFee string

	// Strict rejects amount/price values that are not already at the
	// market's precision instead of silently truncating them.
	Strict bool
}

// Builder assembles order descriptors for a fixed set of markets and
// assets. Metadata is loaded once by the caller and read-only here.
type Builder struct {
	marketMap map[string]*exchange.Market
	assetMap  map[string]*exchange.Asset

	signer Signer
}

// New creates a builder over the given metadata. The signer may be nil, in
// which case only BuildUnsigned is available.
func New(markets []*exchange.Market, assets []*exchange.Asset, signer Signer) (*Builder, error) {
	b := &Builder{
		marketMap: make(map[string]*exchange.Market),
		assetMap:  make(map[string]*exchange.Asset),
		signer:    signer,
	}
	for _, m := range markets {
		if err := m.Check(); err != nil {
			return nil, err
		}
		if _, ok := b.marketMap[m.Name]; ok {
			return nil, fmt.Errorf("duplicate market %q: %w", m.Name, ErrInvalidOrder)
		}
		b.marketMap[m.Name] = m
	}
	for _, a := range assets {
		if _, ok := b.assetMap[a.Symbol]; ok {
			return nil, fmt.Errorf("duplicate asset %q: %w", a.Symbol, ErrInvalidOrder)
		}
		b.assetMap[a.Symbol] = a
	}
	return b, nil
}

func (b *Builder) Market(name string) (*exchange.Market, bool) {
	m, ok := b.marketMap[name]
	return m, ok
}

// Round truncates amount and price to the market's configured decimal
// digits and renders them as fixed-point strings. Truncation never rounds
// up, so a rounded value re-rounds to itself.
func Round(m *exchange.Market, amount, price decimal.Decimal) (amountStr, priceStr string) {
	a := amount.RoundDown(m.AmountPrecision)
	p := price.RoundDown(m.PricePrecision)
	return a.StringFixed(m.AmountPrecision), p.StringFixed(m.PricePrecision)
}

// Build assembles and signs an order. It fails with ErrNoKey when the
// signing capability does not cover the user.
func (b *Builder) Build(req *Request) (*SignedOrder, error) {
	desc, intent, err := b.prepare(req)
	if err != nil {
		return nil, err
	}
	if b.signer == nil || !b.signer.CanSign(req.UserID) {
		return nil, fmt.Errorf("user %d: %w", req.UserID, ErrNoKey)
	}
	sig, err := b.signer.Sign(req.UserID, intent.Hash())
	if err != nil {
		return nil, fmt.Errorf("could not sign order intent: %w", err)
	}
	return &SignedOrder{Descriptor: *desc, Signature: sig}, nil
}

// BuildUnsigned assembles an order without requesting a signature.
func (b *Builder) BuildUnsigned(req *Request) (*UnsignedIntent, error) {
	desc, _, err := b.prepare(req)
	if err != nil {
		return nil, err
	}
	return &UnsignedIntent{Descriptor: *desc}, nil
}

func (b *Builder) prepare(req *Request) (*Descriptor, *Intent, error) {
	market, ok := b.marketMap[req.Market]
	if !ok {
		return nil, nil, fmt.Errorf("unknown market %q: %w", req.Market, ErrInvalidOrder)
	}
	base, ok := b.assetMap[market.Base]
	if !ok {
		return nil, nil, fmt.Errorf("unknown base asset %q: %w", market.Base, ErrInvalidOrder)
	}
	quote, ok := b.assetMap[market.Quote]
	if !ok {
		return nil, nil, fmt.Errorf("unknown quote asset %q: %w", market.Quote, ErrInvalidOrder)
	}

	if !req.Amount.IsPositive() {
		return nil, nil, fmt.Errorf("amount %s must be positive: %w", req.Amount, ErrInvalidOrder)
	}
	if req.Price.IsNegative() {
		return nil, nil, fmt.Errorf("price %s cannot be negative: %w", req.Price, ErrInvalidOrder)
	}
	// Market orders may carry a zero or sentinel price, limit orders may not.
	if req.Type == exchange.TypeLimit && req.Price.IsZero() {
		return nil, nil, fmt.Errorf("limit order price cannot be zero: %w", ErrInvalidOrder)
	}

	amount := req.Amount.RoundDown(market.AmountPrecision)
	price := req.Price.RoundDown(market.PricePrecision)
	if req.Strict {
		if !amount.Equal(req.Amount) {
			return nil, nil, fmt.Errorf("amount %s has more than %d decimals: %w", req.Amount, market.AmountPrecision, ErrPrecision)
		}
		if !price.Equal(req.Price) {
			return nil, nil, fmt.Errorf("price %s has more than %d decimals: %w", req.Price, market.PricePrecision, ErrPrecision)
		}
	}
	if amount.IsZero() {
		return nil, nil, fmt.Errorf("amount %s truncates to zero: %w", req.Amount, ErrInvalidOrder)
	}

	desc := &Descriptor{
		UserID:   req.UserID,
		Market:   market.Name,
		Side:     req.Side,
		Type:     req.Type,
		Amount:   amount.StringFixed(market.AmountPrecision),
		Price:    price.StringFixed(market.PricePrecision),
		TakerFee: req.TakerFee,
		MakerFee: req.MakerFee,
	}

	// Full-precision integer legs for the settlement-layer signature.
	amountFull := amount.Shift(market.AmountPrecision)
	priceFull := price.Shift(market.PricePrecision)
	quoteFull := amountFull.Mul(priceFull)

	intent := new(Intent)
	if req.Side == exchange.SideBid {
		// Buying base with quote.
		intent.TokenBuy = base.InnerID
		intent.TokenSell = quote.InnerID
		intent.TotalBuy = amountFull
		intent.TotalSell = quoteFull
	} else {
		intent.TokenSell = base.InnerID
		intent.TokenBuy = quote.InnerID
		intent.TotalSell = amountFull
		intent.TotalBuy = quoteFull
	}
	return desc, intent, nil
}
