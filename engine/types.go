// Copyright (c) 2025 BVK Chaitanya

package engine

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// GenericResponse is the envelope used by every REST endpoint.
type GenericResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data json.RawMessage `json:"data"`
}

type ListMarketsResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data []*MarketInfo `json:"data"`
}

type MarketInfo struct {
	Name string `json:"name"`

	Base  string `json:"base"`
	Quote string `json:"quote"`

	AmountPrecision int32 `json:"amount_precision"`
	PricePrecision  int32 `json:"price_precision"`

	MinAmount decimal.Decimal `json:"min_amount"`
}

type ListAssetsResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data []*AssetInfo `json:"data"`
}

type AssetInfo struct {
	Symbol string `json:"symbol"`

	InnerID uint32 `json:"inner_id"`

	Precision int32 `json:"prec"`
}

type QueryBalanceResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data []*BalanceEntry `json:"data"`
}

type BalanceEntry struct {
	Asset string `json:"asset_id"`

	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
}

type QueryDepthResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data *DepthData `json:"data"`
}

type DepthData struct {
	Market string `json:"market"`

	// Levels are [price, amount] pairs; bids best-to-worst, asks
	// worst-to-best mirrored.
	Bids [][2]decimal.Decimal `json:"bids"`
	Asks [][2]decimal.Decimal `json:"asks"`
}

type OrderInfo struct {
	ID uint64 `json:"id"`

	Market string `json:"market"`

	Side int32 `json:"order_side"`
	Type int32 `json:"order_type"`

	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`

	FilledBase  decimal.Decimal `json:"finished_base"`
	FilledQuote decimal.Decimal `json:"finished_quote"`

	CreateTimeMilli int64 `json:"create_time"`
}

type OpenOrdersResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data []*OrderInfo `json:"data"`
}

type PutOrderRequest struct {
	UserID int64 `json:"user_id"`

	Market string `json:"market"`

	Side int32 `json:"order_side"`
	Type int32 `json:"order_type"`

	Amount string `json:"amount"`
	Price  string `json:"price"`

	TakerFee string `json:"taker_fee"`
	MakerFee string `json:"maker_fee"`

	Signature string `json:"signature,omitempty"`

	ClientOrderID string `json:"client_order_id,omitempty"`
}

type PutOrderResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data *OrderInfo `json:"data"`
}

type CancelOrderRequest struct {
	UserID int64 `json:"user_id"`

	Market string `json:"market"`

	OrderID uint64 `json:"order_id,omitempty"`
}

type RegisterUserRequest struct {
	UserID int64 `json:"user_id"`

	L1Address string `json:"l1_address"`
	L2Pubkey  string `json:"l2_pubkey"`
}

type RegisterUserResponse struct {
	Code int `json:"code"`

	Message string `json:"message"`

	Data *UserInfo `json:"data"`
}

type UserInfo struct {
	ID int64 `json:"id"`

	L1Address string `json:"l1_address"`
	L2Pubkey  string `json:"l2_pubkey"`
}

type DepositRequest struct {
	UserID int64 `json:"user_id"`

	Asset string `json:"asset"`

	Business   string `json:"business"`
	BusinessID int64  `json:"business_id"`

	Delta string `json:"delta"`
}

// WebsocketNotice is a push message from the engine stream.
type WebsocketNotice struct {
	Method string `json:"method"`

	Market string `json:"market"`

	Depth *DepthData `json:"depth,omitempty"`

	Trades []*TradeUpdate `json:"trades,omitempty"`
}

type TradeUpdate struct {
	Market string `json:"market"`

	Side int32 `json:"side"`

	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`

	TimestampMilli int64 `json:"time"`
}

type websocketCall struct {
	ID int64 `json:"id"`

	Method string `json:"method"`

	Params []any `json:"params"`
}
