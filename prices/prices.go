// Copyright (c) 2025 BVK Chaitanya

// Package prices fetches external reference prices for the market-making
// strategy. Fetched values are cached with their fetch time; staleness is
// an explicit error, never a silent fallback to old data.
package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bvk/mmbot/gobs"
	"github.com/shopspring/decimal"
)

// ErrStale reports that the cached price is older than the configured max
// age and a refresh did not succeed.
var ErrStale = errors.New("cached price is stale")

var DefaultURL = url.URL{
	Scheme: "https",
	Host:   "api.coinstats.app",
	Path:   "/public/v1/coins",
}

type Options struct {
	// Endpoint overrides the public ticker endpoint.
	Endpoint *url.URL

	// RefreshInterval limits the query rate; cached values younger than
	// this are served without a fetch.
	RefreshInterval time.Duration

	// MaxAge is the staleness cutoff. A cached value older than this is
	// returned only alongside a nil error when a refresh succeeded.
	MaxAge time.Duration

	HttpClientTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.Endpoint == nil {
		v.Endpoint = &DefaultURL
	}
	if v.RefreshInterval == 0 {
		v.RefreshInterval = time.Minute
	}
	if v.MaxAge == 0 {
		v.MaxAge = 5 * time.Minute
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 5 * time.Second
	}
}

// Source serves symbol prices out of a rate-limited cache.
type Source struct {
	opts Options

	client http.Client

	mu        sync.Mutex
	pointMap  map[string]gobs.PricePoint
	fetchedAt time.Time
}

func New(opts *Options) *Source {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Source{
		opts:     *opts,
		client:   http.Client{Timeout: opts.HttpClientTimeout},
		pointMap: make(map[string]gobs.PricePoint),
	}
}

// Get returns the current price for the symbol, refreshing the cache when
// it is older than the refresh interval. When the refresh fails, the
// cached value is still returned as long as it is younger than MaxAge;
// otherwise Get fails with ErrStale.
func (s *Source) Get(ctx context.Context, symbol string) (decimal.Decimal, error) {
	point, err := s.GetPoint(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return point.Price, nil
}

// GetPoint is Get with the fetch timestamp attached.
func (s *Source) GetPoint(ctx context.Context, symbol string) (gobs.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var fetchErr error
	if now.Sub(s.fetchedAt) >= s.opts.RefreshInterval {
		if fetchErr = s.fetchLocked(ctx); fetchErr == nil {
			s.fetchedAt = now
		}
	}

	point, ok := s.pointMap[strings.ToUpper(symbol)]
	if !ok {
		if fetchErr != nil {
			return gobs.PricePoint{}, fmt.Errorf("could not fetch prices: %w", fetchErr)
		}
		return gobs.PricePoint{}, fmt.Errorf("no price for symbol %q: %w", symbol, os.ErrNotExist)
	}
	if now.Sub(point.UpdatedAt) > s.opts.MaxAge {
		return gobs.PricePoint{}, fmt.Errorf("price for %q fetched at %s: %w", symbol, point.UpdatedAt.Format(time.RFC3339), ErrStale)
	}
	return point, nil
}

func (s *Source) fetchLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.Endpoint.String(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	type Coin struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	type Response struct {
		Coins []*Coin `json:"coins"`
	}
	reply := new(Response)
	if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return err
	}

	now := time.Now()
	for _, coin := range reply.Coins {
		s.pointMap[strings.ToUpper(coin.Symbol)] = gobs.PricePoint{
			Symbol:    strings.ToUpper(coin.Symbol),
			Price:     coin.Price,
			UpdatedAt: now,
		}
	}
	return nil
}
