// Copyright (c) 2025 BVK Chaitanya

// Package engine implements the REST and websocket client for the remote
// matching-engine service. It satisfies the collaborator interfaces from
// the exchange package; all numeric payloads stay as decimals end to end.
package engine

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/mmbot/ctxutil"
	"github.com/bvk/mmbot/depth"
	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/order"
	"github.com/bvk/mmbot/syncmap"
	"github.com/visvasity/topic"
	"golang.org/x/time/rate"

	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// ErrSubmission reports that the engine rejected an order descriptor.
var ErrSubmission = errors.New("order submission rejected")

var _ exchange.Exchange = (*Client)(nil)

type Client struct {
	cg ctxutil.CloseGroup

	opts Options

	client http.Client

	limiter *rate.Limiter

	kid    string
	signer jose.Signer

	marketMap syncmap.Map[string, *exchange.Market]
	assetMap  syncmap.Map[string, *exchange.Asset]

	depthTopicMap syncmap.Map[string, *topic.Topic[*depth.Snapshot]]
	tradeTopicMap syncmap.Map[string, *topic.Topic[*TradeUpdate]]

	websocketCallCh chan *pendingCall
}

// New creates a client for the matching-engine service. The key id and PEM
// text may be empty for anonymous access to the public endpoints; private
// endpoints then fail at the engine.
func New(kid, pemText string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		opts:    *opts,
		kid:     kid,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		client: http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		websocketCallCh: make(chan *pendingCall, 10),
	}

	if len(kid) != 0 {
		block, _ := pem.Decode([]byte(pemText))
		if block == nil {
			slog.Error("could not parse the PEM private key")
			return nil, os.ErrInvalid
		}
		priKey, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			slog.Error("could not parse the EC private key", "err", err)
			return nil, err
		}
		signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: priKey},
			(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", kid))
		if err != nil {
			slog.Error("could not create go-jose signer", "err", err)
			return nil, err
		}
		c.signer = signer
	}

	c.cg.Go(c.goWatchMessages)
	return c, nil
}

// Close releases resources and destroys the client instance.
func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) bearer() (string, error) {
	if c.signer == nil {
		return "", nil
	}
	now := time.Now()
	claims := jwt.Claims{
		Subject:  c.kid,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(2 * time.Minute)),
	}
	return jwt.Signed(c.signer).Claims(claims).CompactSerialize()
}

func (c *Client) restPath(elem string) *url.URL {
	return &url.URL{
		Scheme: c.opts.RestURL.Scheme,
		Host:   c.opts.RestURL.Host,
		Path:   path.Join(c.opts.RestURL.Path, elem),
	}
}

// ListMarkets fetches market metadata and refreshes the local cache.
func (c *Client) ListMarkets(ctx context.Context) ([]*exchange.Market, error) {
	resp := new(ListMarketsResponse)
	if err := httpGetJSON(ctx, c, c.restPath("/markets"), resp); err != nil {
		return nil, err
	}
	if err := checkResponse(resp.Code, resp.Message); err != nil {
		return nil, err
	}
	var markets []*exchange.Market
	for _, mi := range resp.Data {
		m := &exchange.Market{
			Name:            mi.Name,
			Base:            mi.Base,
			Quote:           mi.Quote,
			AmountPrecision: mi.AmountPrecision,
			PricePrecision:  mi.PricePrecision,
			MinAmount:       mi.MinAmount,
		}
		if err := m.Check(); err != nil {
			return nil, err
		}
		c.marketMap.Store(m.Name, m)
		markets = append(markets, m)
	}
	return markets, nil
}

// ListAssets fetches asset metadata and refreshes the local cache.
func (c *Client) ListAssets(ctx context.Context) ([]*exchange.Asset, error) {
	resp := new(ListAssetsResponse)
	if err := httpGetJSON(ctx, c, c.restPath("/assets"), resp); err != nil {
		return nil, err
	}
	if err := checkResponse(resp.Code, resp.Message); err != nil {
		return nil, err
	}
	var assets []*exchange.Asset
	for _, ai := range resp.Data {
		a := &exchange.Asset{Symbol: ai.Symbol, InnerID: ai.InnerID}
		c.assetMap.Store(a.Symbol, a)
		assets = append(assets, a)
	}
	return assets, nil
}

func (c *Client) QueryBalance(ctx context.Context, userID int64) (map[string]exchange.Balance, error) {
	values := make(url.Values)
	values.Set("user_id", strconv.FormatInt(userID, 10))

	addrURL := c.restPath("/balance")
	addrURL.RawQuery = values.Encode()

	resp := new(QueryBalanceResponse)
	if err := privateGetJSON(ctx, c, addrURL, resp); err != nil {
		return nil, err
	}
	if err := checkResponse(resp.Code, resp.Message); err != nil {
		return nil, err
	}
	balanceMap := make(map[string]exchange.Balance)
	for _, entry := range resp.Data {
		balanceMap[entry.Asset] = exchange.Balance{
			Available: entry.Available,
			Frozen:    entry.Frozen,
		}
	}
	return balanceMap, nil
}

func (c *Client) QueryDepth(ctx context.Context, market string, limit int, interval string) (*depth.Snapshot, error) {
	if limit <= 0 || limit > c.opts.MaxDepthLimit {
		limit = c.opts.MaxDepthLimit
	}
	values := make(url.Values)
	values.Set("market", market)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("interval", interval)

	addrURL := c.restPath("/depth")
	addrURL.RawQuery = values.Encode()

	resp := new(QueryDepthResponse)
	if err := httpGetJSON(ctx, c, addrURL, resp); err != nil {
		return nil, err
	}
	if err := checkResponse(resp.Code, resp.Message); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("depth response has no data: %w", os.ErrInvalid)
	}
	return depthSnapshot(resp.Data), nil
}

func depthSnapshot(data *DepthData) *depth.Snapshot {
	snap := new(depth.Snapshot)
	for _, level := range data.Bids {
		snap.Bids = append(snap.Bids, &depth.PriceLevel{Price: level[0], Amount: level[1]})
	}
	for _, level := range data.Asks {
		snap.Asks = append(snap.Asks, &depth.PriceLevel{Price: level[0], Amount: level[1]})
	}
	return snap
}

func (c *Client) OpenOrders(ctx context.Context, userID int64, market string) ([]*exchange.Order, error) {
	values := make(url.Values)
	values.Set("user_id", strconv.FormatInt(userID, 10))
	values.Set("market", market)

	addrURL := c.restPath("/orders")
	addrURL.RawQuery = values.Encode()

	resp := new(OpenOrdersResponse)
	if err := privateGetJSON(ctx, c, addrURL, resp); err != nil {
		return nil, err
	}
	if err := checkResponse(resp.Code, resp.Message); err != nil {
		return nil, err
	}
	var orders []*exchange.Order
	for _, oi := range resp.Data {
		orders = append(orders, exchangeOrder(oi))
	}
	return orders, nil
}

func exchangeOrder(oi *OrderInfo) *exchange.Order {
	return &exchange.Order{
		ID:          exchange.OrderID(strconv.FormatUint(oi.ID, 10)),
		Market:      oi.Market,
		Side:        exchange.Side(oi.Side),
		Type:        exchange.OrderType(oi.Type),
		Amount:      oi.Amount,
		Price:       oi.Price,
		FilledBase:  oi.FilledBase,
		FilledQuote: oi.FilledQuote,
		CreateTime:  time.UnixMilli(oi.CreateTimeMilli),
	}
}

// Submit sends a signed order to the engine. Submission failures are
// returned to the caller unchanged; the client never retries an order.
func (c *Client) Submit(ctx context.Context, signed *order.SignedOrder, clientOrderID string) (*exchange.Order, error) {
	req := putOrderRequest(&signed.Descriptor, clientOrderID)
	req.Signature = signed.Signature
	return c.putOrder(ctx, req)
}

// SubmitUnsigned sends an order built without a signature. The engine
// accepts these only on markets that do not require settlement signatures.
func (c *Client) SubmitUnsigned(ctx context.Context, intent *order.UnsignedIntent, clientOrderID string) (*exchange.Order, error) {
	return c.putOrder(ctx, putOrderRequest(&intent.Descriptor, clientOrderID))
}

func putOrderRequest(desc *order.Descriptor, clientOrderID string) *PutOrderRequest {
	return &PutOrderRequest{
		UserID:        desc.UserID,
		Market:        desc.Market,
		Side:          int32(desc.Side),
		Type:          int32(desc.Type),
		Amount:        desc.Amount,
		Price:         desc.Price,
		TakerFee:      desc.TakerFee,
		MakerFee:      desc.MakerFee,
		ClientOrderID: clientOrderID,
	}
}

func (c *Client) putOrder(ctx context.Context, req *PutOrderRequest) (*exchange.Order, error) {
	resp := new(PutOrderResponse)
	if err := privatePostJSON(ctx, c, c.restPath("/order"), req, resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("market %s side %d: %s (code %d): %w", req.Market, req.Side, resp.Message, resp.Code, ErrSubmission)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("put order response has no data: %w", os.ErrInvalid)
	}
	return exchangeOrder(resp.Data), nil
}

func (c *Client) Cancel(ctx context.Context, userID int64, market string, id exchange.OrderID) error {
	orderID, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", id, os.ErrInvalid)
	}
	req := &CancelOrderRequest{UserID: userID, Market: market, OrderID: orderID}
	resp := new(GenericResponse)
	if err := privatePostJSON(ctx, c, c.restPath("/cancel"), req, resp); err != nil {
		return err
	}
	return checkResponse(resp.Code, resp.Message)
}

func (c *Client) CancelAll(ctx context.Context, userID int64, market string) error {
	req := &CancelOrderRequest{UserID: userID, Market: market}
	resp := new(GenericResponse)
	if err := privatePostJSON(ctx, c, c.restPath("/cancel-all"), req, resp); err != nil {
		return err
	}
	return checkResponse(resp.Code, resp.Message)
}

// RegisterUser registers a new user with the engine. The engine assigns
// the user id; the id in the request is ignored on the server side.
func (c *Client) RegisterUser(ctx context.Context, l1Address, l2Pubkey string) (*UserInfo, error) {
	req := &RegisterUserRequest{L1Address: l1Address, L2Pubkey: l2Pubkey}
	resp := new(RegisterUserResponse)
	if err := privatePostJSON(ctx, c, c.restPath("/register"), req, resp); err != nil {
		return nil, err
	}
	if err := checkResponse(resp.Code, resp.Message); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("register response has no data: %w", os.ErrInvalid)
	}
	return resp.Data, nil
}

// Deposit credits an asset balance through the engine's balance-update
// endpoint. The business id deduplicates repeated deposits.
func (c *Client) Deposit(ctx context.Context, userID int64, asset, delta string) error {
	req := &DepositRequest{
		UserID:     userID,
		Asset:      asset,
		Business:   "deposit",
		BusinessID: time.Now().UnixMilli(),
		Delta:      delta,
	}
	resp := new(GenericResponse)
	if err := privatePostJSON(ctx, c, c.restPath("/deposit"), req, resp); err != nil {
		return err
	}
	return checkResponse(resp.Code, resp.Message)
}

func checkResponse(code int, message string) error {
	if code != 0 {
		return fmt.Errorf("engine returned error code %d: %s", code, message)
	}
	return nil
}

func httpGetJSON[PT *T, T any](ctx context.Context, c *Client, addrURL *url.URL, response PT) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		slog.Error("could not create http get request with context", "url", addrURL, "err", err)
		return err
	}
	return doJSON(ctx, c, req, addrURL, response)
}

func privateGetJSON[PT *T, T any](ctx context.Context, c *Client, addrURL *url.URL, response PT) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return err
	}
	if err := authorize(c, req); err != nil {
		return err
	}
	return doJSON(ctx, c, req, addrURL, response)
}

func privatePostJSON[PT *T, T any](ctx context.Context, c *Client, addrURL *url.URL, request any, response PT) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var sb strings.Builder
	if err := json.NewEncoder(&sb).Encode(request); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addrURL.String(), strings.NewReader(sb.String()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := authorize(c, req); err != nil {
		return err
	}
	return doJSON(ctx, c, req, addrURL, response)
}

func authorize(c *Client, req *http.Request) error {
	token, err := c.bearer()
	if err != nil {
		slog.Error("could not create bearer token", "err", err)
		return err
	}
	if len(token) != 0 {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func doJSON[PT *T, T any](ctx context.Context, c *Client, req *http.Request, addrURL *url.URL, response PT) error {
	resp, err := c.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not perform http request", "url", addrURL, "err", err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("http request returned unsuccessful status code", "url", addrURL, "status-code", resp.StatusCode)
		if body, err := io.ReadAll(resp.Body); err == nil {
			log.Printf("server response was %s", body)
		}

		if resp.StatusCode == http.StatusBadGateway {
			ctxutil.Sleep(ctx, time.Second)
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return httpRetry(ctx, c, req, addrURL, response)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			timeout := time.Second
			if x := resp.Header.Get("Retry-After"); len(x) != 0 {
				if v, err := strconv.Atoi(x); err == nil {
					timeout = time.Duration(v) * time.Second
				}
			}
			ctxutil.Sleep(ctx, timeout)
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return httpRetry(ctx, c, req, addrURL, response)
		}

		return fmt.Errorf("http request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		slog.Error("could not decode response body", "url", addrURL, "err", err)
		return err
	}
	return nil
}

func httpRetry[PT *T, T any](ctx context.Context, c *Client, req *http.Request, addrURL *url.URL, response PT) error {
	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return err
		}
		retry.Body = body
	}
	return doJSON(ctx, c, retry, addrURL, response)
}
