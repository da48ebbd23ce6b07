// Copyright (c) 2025 BVK Chaitanya

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bvk/mmbot/ctxutil"
	"github.com/bvk/mmbot/depth"
	"github.com/bvk/mmbot/syncmap"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

type pendingCall struct {
	request websocketCall

	response wsReply

	status error

	doneCh chan struct{}
}

type wsHeader struct {
	ID *int64 `json:"id"`

	Method *string `json:"method"`
}

type wsError struct {
	Code int `json:"code"`

	Message string `json:"message"`
}

type wsReply struct {
	ID int64 `json:"id"`

	Error *wsError `json:"error"`

	Result json.RawMessage `json:"result"`
}

// GetDepthUpdates subscribes to order-book snapshots pushed by the engine
// for the given market. The receiver must be closed by the caller.
func (c *Client) GetDepthUpdates(market string) (*topic.Receiver[*depth.Snapshot], error) {
	tp, loaded := c.depthTopicMap.LoadOrStore(market, topic.New[*depth.Snapshot]())
	if !loaded {
		c.cg.Go(func(ctx context.Context) {
			if err := c.subscribeDepth(ctx, market); err != nil {
				slog.Warn("could not subscribe for depth updates (will retry on reconnect)", "market", market, "err", err)
			}
		})
	}
	return topic.Subscribe(tp, 1, true)
}

// GetTradeUpdates subscribes to per-trade notifications for the given
// market. The receiver must be closed by the caller.
func (c *Client) GetTradeUpdates(market string) (*topic.Receiver[*TradeUpdate], error) {
	tp, loaded := c.tradeTopicMap.LoadOrStore(market, topic.New[*TradeUpdate]())
	if !loaded {
		c.cg.Go(func(ctx context.Context) {
			if err := c.subscribeTrades(ctx, market); err != nil {
				slog.Warn("could not subscribe for trade updates (will retry on reconnect)", "market", market, "err", err)
			}
		})
	}
	return topic.Subscribe(tp, 0, true)
}

func (c *Client) subscribeDepth(ctx context.Context, market string) error {
	params := []any{market, c.opts.MaxDepthLimit, "0"}
	_, err := c.websocketCall(ctx, "depth.subscribe", params)
	return err
}

func (c *Client) subscribeTrades(ctx context.Context, market string) error {
	_, err := c.websocketCall(ctx, "deals.subscribe", []any{market})
	return err
}

func (c *Client) goWatchMessages(ctx context.Context) {
	for i := 0; ctx.Err() == nil; i = min(i+1, 5) {
		if err := c.watchMessages(ctx); err != nil {
			slog.Warn("could not watch messages over websocket (may retry)", "err", err)
			ctxutil.Sleep(ctx, c.opts.WebsocketRetryInterval<<i)
		}
	}
}

func (c *Client) watchMessages(ctx context.Context) (status error) {
	callMap := syncmap.Map[int64, *pendingCall]{}
	defer func() {
		// Cancel all in-flight calls with an error.
		for _, call := range callMap.Range {
			if status != nil {
				call.status = status
			} else {
				call.status = os.ErrClosed
			}
			close(call.doneCh)
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancelCause(ctx)
	defer func() {
		if status != nil {
			cancel(status)
		} else {
			cancel(os.ErrClosed)
		}
	}()

	dialer := websocket.Dialer{
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, c.opts.WebsocketURL.String(), nil)
	if err != nil {
		slog.Error("could not dial to websocket feed", "url", c.opts.WebsocketURL, "err", err)
		return err
	}
	defer conn.Close()

	// Start a message reader in the background.
	wg.Add(1)
	go func() {
		defer wg.Done()

		for ctx.Err() == nil {
			msg, err := c.readMessage(ctx, conn)
			if err != nil {
				cancel(err)
				return
			}
			if err := c.handleMessage(msg, &callMap); err != nil {
				slog.Error("could not handle websocket message", "err", err)
				continue
			}
		}
	}()

	// Start a message writer in the background.
	wg.Add(1)
	go func() {
		defer wg.Done()

		id := int64(0)
		for ctx.Err() == nil {
			select {
			case <-ctx.Done():
				return

			case call := <-c.websocketCallCh:
				id++
				call.request.ID = id
				callMap.Store(id, call)

				if err := conn.WriteJSON(&call.request); err != nil {
					slog.Error("could not send websocket request", "method", call.request.Method, "err", err)
					cancel(err)
					return
				}
			}
		}
	}()

	// Resubscribe to all previously requested streams on this connection.
	for market := range c.depthTopicMap.Range {
		if err := c.subscribeDepth(ctx, market); err != nil {
			return err
		}
	}
	for market := range c.tradeTopicMap.Range {
		if err := c.subscribeTrades(ctx, market); err != nil {
			return err
		}
	}

	// Send ping messages periodically to keep the websocket alive.
	for ctx.Err() == nil {
		if _, err := c.websocketCall(ctx, "server.ping", nil); err != nil {
			slog.Error("websocket ping failed; reopening new socket", "err", err)
			return err
		}
		ctxutil.Sleep(ctx, c.opts.WebsocketPingInterval)
	}

	return context.Cause(ctx)
}

func (c *Client) readMessage(ctx context.Context, conn *websocket.Conn) (json.RawMessage, error) {
	stopc := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
		close(stopc)
	})

	_, msg, err := conn.ReadMessage()
	if !stop() {
		// The AfterFunc was started. Wait for it to complete, and reset the
		// Conn's deadline.
		<-stopc
		conn.SetReadDeadline(time.Time{})
		return nil, context.Cause(ctx)
	}
	if err != nil {
		slog.Error("could not read websocket message", "err", err)
		return nil, err
	}

	var m json.RawMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		log.Printf("message=%s", msg)
		slog.Error("could not unmarshal websocket message", "err", err)
		return nil, err
	}
	return m, nil
}

func (c *Client) handleMessage(msg json.RawMessage, callMap *syncmap.Map[int64, *pendingCall]) error {
	var header wsHeader
	if err := json.Unmarshal([]byte(msg), &header); err != nil {
		slog.Error("could not unmarshal websocket message header", "msg", string(msg), "err", err)
		return err
	}

	switch {
	case header.ID != nil:
		call, ok := callMap.LoadAndDelete(*header.ID)
		if !ok {
			slog.Warn("could not find websocket call with incoming id (ignored)", "id", *header.ID, "msg", string(msg))
			return nil
		}
		if err := json.Unmarshal([]byte(msg), &call.response); err != nil {
			slog.Error("could not unmarshal websocket response", "msg", string(msg), "err", err)
			call.status = err
			close(call.doneCh)
			return err
		}
		close(call.doneCh)
		return nil

	case header.Method != nil:
		notice := new(WebsocketNotice)
		if err := json.Unmarshal([]byte(msg), notice); err != nil {
			slog.Error("could not unmarshal websocket notice", "msg", string(msg), "err", err)
			return err
		}
		return c.handleNotice(notice)

	default:
		return fmt.Errorf("could not identify websocket message type")
	}
}

func (c *Client) handleNotice(notice *WebsocketNotice) error {
	switch notice.Method {
	case "depth.update":
		if notice.Depth == nil {
			return fmt.Errorf("depth notice has no depth data: %w", os.ErrInvalid)
		}
		if tp, ok := c.depthTopicMap.Load(notice.Market); ok {
			tp.Send(depthSnapshot(notice.Depth))
		}
		return nil

	case "deals.update":
		tp, ok := c.tradeTopicMap.Load(notice.Market)
		if !ok {
			return nil
		}
		for _, trade := range notice.Trades {
			tp.Send(trade)
		}
		return nil

	default:
		slog.Warn("could not find notice handler for incoming method (ignored)", "method", notice.Method)
		return nil
	}
}

func (c *Client) websocketCall(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	call := &pendingCall{
		doneCh: make(chan struct{}),
		request: websocketCall{
			Method: method,
			Params: params,
		},
	}
	// Send request.
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case c.websocketCallCh <- call:
	}
	// Receive response.
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-call.doneCh:
		if call.status != nil {
			return nil, call.status
		}
		if call.response.Error != nil {
			return nil, fmt.Errorf("method %q failed: code=%d message=%q", method, call.response.Error.Code, call.response.Error.Message)
		}
		return call.response.Result, nil
	}
}
