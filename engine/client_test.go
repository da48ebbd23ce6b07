// Copyright (c) 2025 BVK Chaitanya

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/order"
	"github.com/shopspring/decimal"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	s := httptest.NewServer(handler)
	t.Cleanup(s.Close)

	restURL, err := url.Parse(s.URL + "/api/exchange")
	if err != nil {
		t.Fatal(err)
	}
	opts := &Options{
		RestURL: restURL,
		// Point the stream at an unroutable host so the background
		// watcher stays in its retry loop during the test.
		WebsocketURL: &url.URL{Scheme: "ws", Host: "localhost:1", Path: "/ws"},
	}
	c, err := New("", "", opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestListMarkets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange/markets", func(w http.ResponseWriter, r *http.Request) {
		resp := &ListMarketsResponse{
			Data: []*MarketInfo{
				{
					Name:            "ETH_USDT",
					Base:            "ETH",
					Quote:           "USDT",
					AmountPrecision: 4,
					PricePrecision:  2,
					MinAmount:       decimal.RequireFromString("0.001"),
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	c, _ := testClient(t, mux)

	markets, err := c.ListMarkets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(markets) != 1 {
		t.Fatalf("want 1 market, got %d", len(markets))
	}
	m := markets[0]
	if m.Name != "ETH_USDT" || m.AmountPrecision != 4 || m.PricePrecision != 2 {
		t.Fatalf("unexpected market %+v", m)
	}

	// Metadata must also land in the local cache.
	if _, ok := c.marketMap.Load("ETH_USDT"); !ok {
		t.Fatalf("market cache was not updated")
	}
}

func TestQueryDepth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange/depth", func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("market"); v != "ETH_USDT" {
			t.Errorf("want market ETH_USDT, got %q", v)
		}
		resp := &QueryDepthResponse{
			Data: &DepthData{
				Bids: [][2]decimal.Decimal{
					{decimal.RequireFromString("10"), decimal.RequireFromString("2")},
					{decimal.RequireFromString("9"), decimal.RequireFromString("5")},
				},
				Asks: [][2]decimal.Decimal{
					{decimal.RequireFromString("11"), decimal.RequireFromString("3")},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	c, _ := testClient(t, mux)

	snap, err := c.QueryDepth(context.Background(), "ETH_USDT", 20, "0")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Bids) != 2 || len(snap.Asks) != 1 {
		t.Fatalf("want 2 bids and 1 ask, got %d and %d", len(snap.Bids), len(snap.Asks))
	}
	if !snap.Bids[0].Price.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("want best bid 10, got %s", snap.Bids[0].Price)
	}
}

func TestQueryBalance(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange/balance", func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("user_id"); v != "7" {
			t.Errorf("want user_id 7, got %q", v)
		}
		resp := &QueryBalanceResponse{
			Data: []*BalanceEntry{
				{Asset: "ETH", Available: decimal.RequireFromString("1.5"), Frozen: decimal.RequireFromString("0.5")},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	c, _ := testClient(t, mux)

	balanceMap, err := c.QueryBalance(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := balanceMap["ETH"]
	if !ok {
		t.Fatalf("want an ETH balance entry")
	}
	if !b.Total().Equal(decimal.RequireFromString("2")) {
		t.Fatalf("want total 2, got %s", b.Total())
	}
}

func TestSubmitSigned(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange/order", func(w http.ResponseWriter, r *http.Request) {
		req := new(PutOrderRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			t.Error(err)
		}
		if req.Signature != "cafebabe" {
			t.Errorf("want signature cafebabe, got %q", req.Signature)
		}
		if req.ClientOrderID != "client-1" {
			t.Errorf("want client order id client-1, got %q", req.ClientOrderID)
		}
		resp := &PutOrderResponse{
			Data: &OrderInfo{
				ID:     42,
				Market: req.Market,
				Side:   req.Side,
				Type:   req.Type,
				Amount: decimal.RequireFromString(req.Amount),
				Price:  decimal.RequireFromString(req.Price),
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	c, _ := testClient(t, mux)

	signed := &order.SignedOrder{
		Descriptor: order.Descriptor{
			UserID: 7,
			Market: "ETH_USDT",
			Side:   exchange.SideBid,
			Type:   exchange.TypeLimit,
			Amount: "0.8004",
			Price:  "999.50",
		},
		Signature: "cafebabe",
	}
	placed, err := c.Submit(context.Background(), signed, "client-1")
	if err != nil {
		t.Fatal(err)
	}
	if placed.ID != exchange.OrderID("42") {
		t.Fatalf("want order id 42, got %s", placed.ID)
	}
	if placed.Side != exchange.SideBid {
		t.Fatalf("want bid side, got %d", placed.Side)
	}
}

func TestSubmitRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange/order", func(w http.ResponseWriter, r *http.Request) {
		resp := &PutOrderResponse{Code: 10, Message: "balance not enough"}
		json.NewEncoder(w).Encode(resp)
	})

	c, _ := testClient(t, mux)

	intent := &order.UnsignedIntent{
		Descriptor: order.Descriptor{
			UserID: 7,
			Market: "ETH_USDT",
			Side:   exchange.SideAsk,
			Type:   exchange.TypeLimit,
			Amount: "0.8000",
			Price:  "1000.50",
		},
	}
	if _, err := c.SubmitUnsigned(context.Background(), intent, ""); !errors.Is(err, ErrSubmission) {
		t.Fatalf("want ErrSubmission, got %v", err)
	}
}

func TestCancelAll(t *testing.T) {
	canceled := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange/cancel-all", func(w http.ResponseWriter, r *http.Request) {
		req := new(CancelOrderRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			t.Error(err)
		}
		if req.UserID != 7 || req.Market != "ETH_USDT" {
			t.Errorf("unexpected cancel-all request %+v", req)
		}
		canceled = true
		json.NewEncoder(w).Encode(&GenericResponse{})
	})

	c, _ := testClient(t, mux)

	if err := c.CancelAll(context.Background(), 7, "ETH_USDT"); err != nil {
		t.Fatal(err)
	}
	if !canceled {
		t.Fatalf("cancel-all endpoint was not invoked")
	}
}

func TestBadGatewayRetry(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange/markets", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(&ListMarketsResponse{})
	})

	c, _ := testClient(t, mux)

	if _, err := c.ListMarkets(context.Background()); err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Fatalf("want 2 attempts, got %d", attempts)
	}
}
