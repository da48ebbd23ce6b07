// Copyright (c) 2025 BVK Chaitanya

package depth

import (
	"testing"

	"github.com/shopspring/decimal"
)

func level(price, amount float64) *PriceLevel {
	return &PriceLevel{
		Price:  decimal.NewFromFloat(price),
		Amount: decimal.NewFromFloat(amount),
	}
}

func TestEstimateSell(t *testing.T) {
	book := &Snapshot{
		Bids: []*PriceLevel{level(10, 2), level(9, 5)},
	}
	est := EstimateSell(book, decimal.NewFromInt(4))
	if !est.FilledBase.Equal(decimal.NewFromInt(4)) {
		t.Errorf("filled base: want 4, got %s", est.FilledBase)
	}
	if !est.FilledQuote.Equal(decimal.NewFromInt(38)) {
		t.Errorf("filled quote: want 38, got %s", est.FilledQuote)
	}
	avg, ok := est.AvgPrice()
	if !ok {
		t.Fatalf("average price must be defined")
	}
	if !avg.Equal(decimal.NewFromFloat(9.5)) {
		t.Errorf("average price: want 9.5, got %s", avg)
	}
	if !est.BestPrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("best price: want 10, got %s", est.BestPrice)
	}
	if !est.WorstPrice.Equal(decimal.NewFromInt(9)) {
		t.Errorf("worst price: want 9, got %s", est.WorstPrice)
	}
}

func TestEstimateSellPartial(t *testing.T) {
	book := &Snapshot{
		Bids: []*PriceLevel{level(10, 2), level(9, 1)},
	}
	target := decimal.NewFromInt(100)
	est := EstimateSell(book, target)
	if !est.FilledBase.Equal(decimal.NewFromInt(3)) {
		t.Errorf("partial fill must consume the whole book, got %s", est.FilledBase)
	}
	if est.FilledBase.GreaterThan(target) {
		t.Errorf("filled base %s exceeds target %s", est.FilledBase, target)
	}
	if !est.WorstPrice.Equal(decimal.NewFromInt(9)) {
		t.Errorf("worst price: want 9, got %s", est.WorstPrice)
	}
}

func TestEstimateSellEmptyBook(t *testing.T) {
	est := EstimateSell(&Snapshot{}, decimal.NewFromInt(1))
	if !est.FilledBase.IsZero() || !est.FilledQuote.IsZero() {
		t.Errorf("empty book must yield a zero estimate, got %s/%s", est.FilledBase, est.FilledQuote)
	}
	if _, ok := est.AvgPrice(); ok {
		t.Errorf("average price must be undefined on a zero fill")
	}
}

func TestEstimateBuy(t *testing.T) {
	book := &Snapshot{
		Asks: []*PriceLevel{level(10, 2), level(11, 5)},
	}
	// Spend 20 on the first level and 22 on part of the second.
	est := EstimateBuy(book, decimal.NewFromInt(42))
	if !est.FilledQuote.Equal(decimal.NewFromInt(42)) {
		t.Errorf("filled quote: want 42, got %s", est.FilledQuote)
	}
	if !est.FilledBase.Equal(decimal.NewFromInt(4)) {
		t.Errorf("filled base: want 4, got %s", est.FilledBase)
	}
	if !est.BestPrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("best price: want 10, got %s", est.BestPrice)
	}
	if !est.WorstPrice.Equal(decimal.NewFromInt(11)) {
		t.Errorf("worst price: want 11, got %s", est.WorstPrice)
	}
}

func TestEstimateBuyConservation(t *testing.T) {
	// Prices 3 and 7 make the clamp divisions non-terminating, so the
	// rounded base amount times the price would drift past the target.
	book := &Snapshot{
		Asks: []*PriceLevel{level(3, 0.7), level(3.5, 1.3), level(7, 10)},
	}
	for _, target := range []float64{0.5, 1, 2, 2.1, 6.65, 20, 100} {
		tq := decimal.NewFromFloat(target)
		est := EstimateBuy(book, tq)
		if est.FilledQuote.GreaterThan(tq) {
			t.Errorf("target %s: filled quote %s exceeds target", tq, est.FilledQuote)
		}
	}
	// Deep book fills the target exactly.
	est := EstimateBuy(book, decimal.NewFromInt(10))
	if !est.FilledQuote.Equal(decimal.NewFromInt(10)) {
		t.Errorf("deep book must fill the target exactly, got %s", est.FilledQuote)
	}
}

func TestEstimateBuyInexactClamp(t *testing.T) {
	book := &Snapshot{
		Asks: []*PriceLevel{level(3, 1)},
	}
	target := decimal.NewFromInt(2)
	est := EstimateBuy(book, target)
	if !est.FilledQuote.Equal(target) {
		t.Errorf("filled quote: want %s exactly, got %s", target, est.FilledQuote)
	}
	if est.FilledQuote.GreaterThan(target) {
		t.Errorf("filled quote %s exceeds target %s", est.FilledQuote, target)
	}
}
