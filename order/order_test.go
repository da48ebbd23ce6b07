// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bvk/mmbot/exchange"
	"github.com/shopspring/decimal"
)

type fakeSigner struct {
	users map[int64]bool
	fail  error
}

func (s *fakeSigner) CanSign(userID int64) bool {
	return s.users[userID]
}

func (s *fakeSigner) Sign(userID int64, hash []byte) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	return fmt.Sprintf("sig-%d-%x", userID, hash[:4]), nil
}

func testBuilder(t *testing.T, amountPrec, pricePrec int32, signer Signer) *Builder {
	t.Helper()
	markets := []*exchange.Market{
		{
			Name:            "ETH_USDT",
			Base:            "ETH",
			Quote:           "USDT",
			AmountPrecision: amountPrec,
			PricePrecision:  pricePrec,
			MinAmount:       decimal.NewFromFloat(0.001),
		},
	}
	assets := []*exchange.Asset{
		{Symbol: "ETH", InnerID: 5},
		{Symbol: "USDT", InnerID: 7},
	}
	b, err := New(markets, assets, signer)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	m := &exchange.Market{
		Name:            "ETH_USDT",
		Base:            "ETH",
		Quote:           "USDT",
		AmountPrecision: 4,
		PricePrecision:  2,
	}
	values := []string{"0.80040020", "1000.505", "0.00009", "123", "99.999999"}
	for _, s := range values {
		v := decimal.RequireFromString(s)
		a1, p1 := Round(m, v, v)
		a2, p2 := Round(m, decimal.RequireFromString(a1), decimal.RequireFromString(p1))
		if a1 != a2 {
			t.Errorf("amount %s: round(round(x)) = %s, round(x) = %s", s, a2, a1)
		}
		if p1 != p2 {
			t.Errorf("price %s: round(round(x)) = %s, round(x) = %s", s, p2, p1)
		}
	}
}

func TestRoundTruncates(t *testing.T) {
	m := &exchange.Market{
		Name:            "ETH_USDT",
		Base:            "ETH",
		Quote:           "USDT",
		AmountPrecision: 4,
		PricePrecision:  2,
	}
	amount, price := Round(m, decimal.RequireFromString("0.80049"), decimal.RequireFromString("999.999"))
	if amount != "0.8004" {
		t.Errorf("amount must truncate, not round up: got %s", amount)
	}
	if price != "999.99" {
		t.Errorf("price must truncate, not round up: got %s", price)
	}
}

func TestSideLegMapping(t *testing.T) {
	b := testBuilder(t, 0, 2, nil)

	req := &Request{
		UserID: 1,
		Market: "ETH_USDT",
		Side:   exchange.SideBid,
		Type:   exchange.TypeLimit,
		Amount: decimal.NewFromInt(10),
		Price:  decimal.RequireFromString("1.1"),
	}
	desc, intent, err := b.prepare(req)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Amount != "10" || desc.Price != "1.10" {
		t.Errorf("descriptor amount/price: got %s/%s", desc.Amount, desc.Price)
	}
	if intent.TokenBuy != 5 || intent.TokenSell != 7 {
		t.Errorf("bid token legs: got buy=%d sell=%d", intent.TokenBuy, intent.TokenSell)
	}
	if !intent.TotalBuy.Equal(decimal.NewFromInt(10)) {
		t.Errorf("bid total buy: want 10, got %s", intent.TotalBuy)
	}
	if !intent.TotalSell.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("bid total sell: want 1100, got %s", intent.TotalSell)
	}

	req.Side = exchange.SideAsk
	_, intent, err = b.prepare(req)
	if err != nil {
		t.Fatal(err)
	}
	if intent.TokenSell != 5 || intent.TokenBuy != 7 {
		t.Errorf("ask token legs: got buy=%d sell=%d", intent.TokenBuy, intent.TokenSell)
	}
	if !intent.TotalSell.Equal(decimal.NewFromInt(10)) {
		t.Errorf("ask total sell: want 10, got %s", intent.TotalSell)
	}
	if !intent.TotalBuy.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("ask total buy: want 1100, got %s", intent.TotalBuy)
	}
}

func TestSideLegMappingMaxPrecision(t *testing.T) {
	b := testBuilder(t, 8, 8, nil)
	req := &Request{
		UserID: 1,
		Market: "ETH_USDT",
		Side:   exchange.SideBid,
		Type:   exchange.TypeLimit,
		Amount: decimal.RequireFromString("0.00000001"),
		Price:  decimal.RequireFromString("0.00000002"),
	}
	_, intent, err := b.prepare(req)
	if err != nil {
		t.Fatal(err)
	}
	if !intent.TotalBuy.Equal(decimal.NewFromInt(1)) {
		t.Errorf("total buy: want 1, got %s", intent.TotalBuy)
	}
	if !intent.TotalSell.Equal(decimal.NewFromInt(2)) {
		t.Errorf("total sell: want 2, got %s", intent.TotalSell)
	}
}

func TestStrictPrecision(t *testing.T) {
	b := testBuilder(t, 4, 2, nil)
	req := &Request{
		UserID: 1,
		Market: "ETH_USDT",
		Side:   exchange.SideBid,
		Type:   exchange.TypeLimit,
		Amount: decimal.RequireFromString("0.80041"),
		Price:  decimal.RequireFromString("999.50"),
		Strict: true,
	}
	if _, err := b.BuildUnsigned(req); !errors.Is(err, ErrPrecision) {
		t.Errorf("want ErrPrecision, got %v", err)
	}
	req.Amount = decimal.RequireFromString("0.8004")
	if _, err := b.BuildUnsigned(req); err != nil {
		t.Errorf("exact precision input must pass strict check: %v", err)
	}
}

func TestInvalidOrders(t *testing.T) {
	b := testBuilder(t, 4, 2, nil)
	base := Request{
		UserID: 1,
		Market: "ETH_USDT",
		Side:   exchange.SideBid,
		Type:   exchange.TypeLimit,
		Amount: decimal.NewFromInt(1),
		Price:  decimal.NewFromInt(1000),
	}

	req := base
	req.Amount = decimal.Zero
	if _, err := b.BuildUnsigned(&req); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("zero amount: want ErrInvalidOrder, got %v", err)
	}

	req = base
	req.Amount = decimal.NewFromInt(-1)
	if _, err := b.BuildUnsigned(&req); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("negative amount: want ErrInvalidOrder, got %v", err)
	}

	req = base
	req.Amount = decimal.RequireFromString("0.00001")
	if _, err := b.BuildUnsigned(&req); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("amount truncating to zero: want ErrInvalidOrder, got %v", err)
	}

	req = base
	req.Market = "BTC_USDT"
	if _, err := b.BuildUnsigned(&req); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("unknown market: want ErrInvalidOrder, got %v", err)
	}

	req = base
	req.Price = decimal.Zero
	if _, err := b.BuildUnsigned(&req); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("zero-price limit order: want ErrInvalidOrder, got %v", err)
	}

	// A market order may use a zero price.
	req = base
	req.Type = exchange.TypeMarket
	req.Price = decimal.Zero
	if _, err := b.BuildUnsigned(&req); err != nil {
		t.Errorf("zero-price market order must be valid: %v", err)
	}
}

func TestBuildSigned(t *testing.T) {
	signer := &fakeSigner{users: map[int64]bool{1: true}}
	b := testBuilder(t, 4, 2, signer)
	req := &Request{
		UserID: 1,
		Market: "ETH_USDT",
		Side:   exchange.SideAsk,
		Type:   exchange.TypeLimit,
		Amount: decimal.RequireFromString("0.8"),
		Price:  decimal.RequireFromString("1000.50"),
		TakerFee: "0",
		MakerFee: "0",
	}
	signed, err := b.Build(req)
	if err != nil {
		t.Fatal(err)
	}
	if len(signed.Signature) == 0 {
		t.Errorf("signed order must carry a signature")
	}
	if signed.Amount != "0.8000" || signed.Price != "1000.50" {
		t.Errorf("signed order amount/price: got %s/%s", signed.Amount, signed.Price)
	}

	req.UserID = 2
	if _, err := b.Build(req); !errors.Is(err, ErrNoKey) {
		t.Errorf("unknown user: want ErrNoKey, got %v", err)
	}
}

func TestBuildSigningFailure(t *testing.T) {
	signer := &fakeSigner{users: map[int64]bool{1: true}, fail: errors.New("hsm unavailable")}
	b := testBuilder(t, 4, 2, signer)
	req := &Request{
		UserID: 1,
		Market: "ETH_USDT",
		Side:   exchange.SideBid,
		Type:   exchange.TypeLimit,
		Amount: decimal.NewFromInt(1),
		Price:  decimal.NewFromInt(1000),
	}
	if _, err := b.Build(req); !errors.Is(err, signer.fail) {
		t.Errorf("signing failure must propagate: got %v", err)
	}
}

func TestIntentHashDependsOnLegs(t *testing.T) {
	a := &Intent{TokenBuy: 5, TokenSell: 7, TotalBuy: decimal.NewFromInt(10), TotalSell: decimal.NewFromInt(1100)}
	b := &Intent{TokenBuy: 7, TokenSell: 5, TotalBuy: decimal.NewFromInt(1100), TotalSell: decimal.NewFromInt(10)}
	if string(a.Hash()) == string(b.Hash()) {
		t.Errorf("swapped legs must produce a different digest")
	}
}
