// Copyright (c) 2025 BVK Chaitanya

package prices

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testSource(t *testing.T, opts *Options, handler http.HandlerFunc) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	endpoint, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.Endpoint = endpoint
	return New(opts)
}

func TestGet(t *testing.T) {
	var fetches atomic.Int64
	s := testSource(t, nil, func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		fmt.Fprintln(w, `{"coins":[{"symbol":"ETH","price":1234.5},{"symbol":"BTC","price":43000}]}`)
	})

	ctx := context.Background()
	price, err := s.Get(ctx, "ETH")
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimal.NewFromFloat(1234.5)) {
		t.Errorf("price: want 1234.5, got %s", price)
	}

	// A second lookup within the refresh interval is served from cache.
	if _, err := s.Get(ctx, "BTC"); err != nil {
		t.Fatal(err)
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("want 1 fetch, got %d", n)
	}

	if _, err := s.Get(ctx, "DOGE"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unknown symbol: want ErrNotExist, got %v", err)
	}
}

func TestGetStale(t *testing.T) {
	var fail atomic.Bool
	opts := &Options{
		RefreshInterval: time.Nanosecond,
		MaxAge:          50 * time.Millisecond,
	}
	s := testSource(t, opts, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintln(w, `{"coins":[{"symbol":"ETH","price":1000}]}`)
	})

	ctx := context.Background()
	if _, err := s.Get(ctx, "ETH"); err != nil {
		t.Fatal(err)
	}

	// While the cache is fresh, fetch failures fall back to the cache.
	fail.Store(true)
	if _, err := s.Get(ctx, "ETH"); err != nil {
		t.Fatalf("fresh cache must mask a failed refresh: %v", err)
	}

	// Once the cache ages out, the failure surfaces as ErrStale.
	time.Sleep(60 * time.Millisecond)
	if _, err := s.Get(ctx, "ETH"); !errors.Is(err, ErrStale) {
		t.Errorf("want ErrStale, got %v", err)
	}
}
