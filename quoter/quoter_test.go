// Copyright (c) 2025 BVK Chaitanya

package quoter

import (
	"testing"

	"github.com/bvk/mmbot/exchange"
	"github.com/shopspring/decimal"
)

var testMarket = &exchange.Market{
	Name:            "ETH_USDT",
	Base:            "ETH",
	Quote:           "USDT",
	AmountPrecision: 4,
	PricePrecision:  2,
	MinAmount:       decimal.NewFromFloat(0.001),
}

func testParams() *Params {
	p := new(Params)
	p.SetDefaults()
	return p
}

func TestCompute(t *testing.T) {
	result, err := Compute(testMarket, testParams(),
		decimal.NewFromInt(1000), // reference price
		decimal.NewFromInt(1),    // base balance
		decimal.NewFromInt(1000), // quote balance
		Quote{Side: exchange.SideBid}, Quote{Side: exchange.SideAsk})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed {
		t.Fatalf("fresh quote must be flagged as changed")
	}
	if result.Ask.Price != "1000.50" {
		t.Errorf("ask price: want 1000.50, got %s", result.Ask.Price)
	}
	if result.Bid.Price != "999.50" {
		t.Errorf("bid price: want 999.50, got %s", result.Bid.Price)
	}
	if result.Ask.Amount != "0.8000" {
		t.Errorf("ask amount: want 0.8000, got %s", result.Ask.Amount)
	}
	if result.Bid.Amount != "0.8004" {
		t.Errorf("bid amount: want 0.8004, got %s", result.Bid.Amount)
	}
}

func TestComputeStability(t *testing.T) {
	ref := decimal.NewFromInt(1000)
	first, err := Compute(testMarket, testParams(), ref,
		decimal.NewFromInt(1), decimal.NewFromInt(1000),
		Quote{Side: exchange.SideBid}, Quote{Side: exchange.SideAsk})
	if err != nil {
		t.Fatal(err)
	}

	// Same reference price with different balances: amounts drift but
	// prices do not, so no update is needed.
	second, err := Compute(testMarket, testParams(), ref,
		decimal.NewFromInt(2), decimal.NewFromInt(500),
		first.Bid, first.Ask)
	if err != nil {
		t.Fatal(err)
	}
	if second.Changed {
		t.Errorf("price-stable quote must not be flagged as changed")
	}

	// A moved reference price invalidates the previous quote.
	third, err := Compute(testMarket, testParams(), decimal.NewFromInt(1010),
		decimal.NewFromInt(1), decimal.NewFromInt(1000),
		first.Bid, first.Ask)
	if err != nil {
		t.Fatal(err)
	}
	if !third.Changed {
		t.Errorf("moved reference price must produce a changed quote")
	}
}

func TestComputeDustFilter(t *testing.T) {
	// Quote balance large enough, base balance producing a dust ask.
	result, err := Compute(testMarket, testParams(),
		decimal.NewFromInt(1000),
		decimal.NewFromFloat(0.0001), // base: 0.00008 raw ask, below min
		decimal.NewFromInt(1000),
		Quote{Side: exchange.SideBid}, Quote{Side: exchange.SideAsk})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Ask.Empty() {
		t.Errorf("dust ask must be empty, got %v", result.Ask)
	}
	if result.Bid.Empty() {
		t.Errorf("bid side must survive the dust filter")
	}

	// Both sides dust against an empty previous quote is a no-op.
	result, err = Compute(testMarket, testParams(),
		decimal.NewFromInt(1000),
		decimal.NewFromFloat(0.0001),
		decimal.NewFromFloat(0.5),
		Quote{Side: exchange.SideBid}, Quote{Side: exchange.SideAsk})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Bid.Empty() || !result.Ask.Empty() {
		t.Fatalf("both sides must be empty: %v %v", result.Bid, result.Ask)
	}
	if result.Changed {
		t.Errorf("empty quote against empty previous quote must not be flagged as changed")
	}
}

func TestComputeBadInputs(t *testing.T) {
	if _, err := Compute(testMarket, testParams(), decimal.Zero,
		decimal.NewFromInt(1), decimal.NewFromInt(1000),
		Quote{}, Quote{}); err == nil {
		t.Errorf("zero reference price must be rejected")
	}

	params := testParams()
	params.Spread = decimal.NewFromInt(2)
	if _, err := Compute(testMarket, params, decimal.NewFromInt(1000),
		decimal.NewFromInt(1), decimal.NewFromInt(1000),
		Quote{}, Quote{}); err == nil {
		t.Errorf("out of range spread must be rejected")
	}
}
