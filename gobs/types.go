// Copyright (c) 2025 BVK Chaitanya

// Package gobs defines the gob-encoded types stored in the key-value
// datastore. Fields can only be added; never remove or renumber.
package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one persisted side of a market-maker quote. Price and Amount
// are fixed-point strings at the market's precision; both empty means the
// side was suppressed.
type Quote struct {
	Side   int32
	Price  string
	Amount string
}

// BotState is the per-bot strategy state threaded through every tick and
// persisted after each update. Each bot task owns exactly one BotState;
// nothing is shared across bots.
type BotState struct {
	UID string

	UserID int64
	Market string

	LastBid Quote
	LastAsk Quote

	TickCount  int64
	ResetCount int64

	// IDOffset is the next client-order-id sequence number, so a
	// restarted bot never reuses an id.
	IDOffset uint64

	UpdatedAt time.Time
}

// PricePoint is a cached external reference price with its fetch time, so
// staleness is an explicit check instead of a side channel.
type PricePoint struct {
	Symbol string
	Price  decimal.Decimal

	UpdatedAt time.Time
}

// TelegramState holds the chat ids learned from authorized users.
type TelegramState struct {
	UserChatIDMap map[string]int64
}
