// Package venue is the live exchange client: REST for positions,
// books, and order submission, websocket for the push feed.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

type Gateway struct {
	rest      *resty.Client
	streamURL string
	conn      *websocket.Conn
	down      atomic.Bool
}

var _ interfaces.Gateway = (*Gateway)(nil)

// New builds the REST client from config. The stream is dialed lazily
// in Stream.
func New(cfg *store.Config, apiKey string) *Gateway {
	client := resty.New().
		SetBaseURL(cfg.Gateway.BaseURL).
		SetTimeout(time.Duration(cfg.Gateway.TimeoutMS)*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		// Only the read-only endpoints are safe to replay. A POST that
		// dies mid-flight may already be accepted; retrying it would
		// place a second order.
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil && r != nil && r.Request.Method == http.MethodGet
		})
	return &Gateway{
		rest:      client,
		streamURL: cfg.Gateway.StreamURL,
	}
}

func (g *Gateway) Positions(ctx context.Context) ([]types.Position, error) {
	var out struct {
		Positions []types.Position `json:"positions"`
	}
	resp, err := g.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/positions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrGatewayUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("positions: http %d", resp.StatusCode())
	}
	return out.Positions, nil
}

func (g *Gateway) OrderBook(ctx context.Context, contractID, outcomeID string) (types.OrderBookSnapshot, error) {
	var out types.OrderBookSnapshot
	resp, err := g.rest.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"contract": contractID, "outcome": outcomeID}).
		SetResult(&out).
		Get("/v1/markets/{contract}/books/{outcome}")
	if err != nil {
		return types.OrderBookSnapshot{}, fmt.Errorf("%w: %v", types.ErrGatewayUnavailable, err)
	}
	if resp.IsError() {
		return types.OrderBookSnapshot{}, fmt.Errorf("order book %s/%s: http %d", contractID, outcomeID, resp.StatusCode())
	}
	return out, nil
}

// Submit posts one order and maps the venue's answer onto the
// rejection taxonomy. A lost stream stops new submissions until the
// process restarts; monitors keep running.
func (g *Gateway) Submit(ctx context.Context, order types.Order) (types.OrderResult, error) {
	if g.down.Load() {
		return types.OrderResult{}, types.ErrGatewayUnavailable
	}

	var out types.OrderResult
	resp, err := g.rest.R().
		SetContext(ctx).
		SetBody(order).
		SetResult(&out).
		Post("/v1/orders")
	if err != nil {
		g.down.Store(true)
		return types.OrderResult{}, fmt.Errorf("%w: %v", types.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return types.OrderResult{OrderID: order.ID, Status: types.OrderRejected, Reason: types.RejectAuthError}, nil
	case resp.StatusCode() == http.StatusTooManyRequests:
		return types.OrderResult{OrderID: order.ID, Status: types.OrderRejected, Reason: types.RejectRateLimited}, nil
	case resp.IsError():
		return types.OrderResult{}, fmt.Errorf("submit: http %d: %s", resp.StatusCode(), resp.String())
	}
	return out, nil
}

// streamFrame is the wire shape of one push-feed message.
type streamFrame struct {
	Type     string                   `json:"type"`
	Snapshot *types.OrderBookSnapshot `json:"snapshot,omitempty"`
	Delta    *types.BookDelta         `json:"delta,omitempty"`
	Fill     *types.Fill              `json:"fill,omitempty"`
}

// Stream dials the websocket feed and decodes frames until the
// connection drops or ctx is cancelled. On connection loss the channel
// closes and the gateway refuses new submissions.
func (g *Gateway) Stream(ctx context.Context) (<-chan types.GatewayEvent, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.streamURL, nil)
	if err != nil {
		g.down.Store(true)
		return nil, fmt.Errorf("%w: dial %s: %v", types.ErrGatewayUnavailable, g.streamURL, err)
	}
	g.conn = conn

	events := make(chan types.GatewayEvent, 256)
	go func() {
		defer close(events)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					g.down.Store(true)
					logger.ErrorWithErr(ctx, "Gateway stream lost", err)
				}
				return
			}
			var frame streamFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				logger.Warn(ctx, "Malformed stream frame", "error", err)
				continue
			}
			ev := types.GatewayEvent{Snapshot: frame.Snapshot, Delta: frame.Delta, Fill: frame.Fill}
			if ev.Snapshot == nil && ev.Delta == nil && ev.Fill == nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.Info(ctx, "Gateway stream connected", "url", g.streamURL)
	return events, nil
}

func (g *Gateway) Close(ctx context.Context) error {
	if g.conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = g.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return g.conn.Close()
}
