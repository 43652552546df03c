package venue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

func venueConfig(baseURL, streamURL string) *store.Config {
	cfg := &store.Config{}
	cfg.Gateway.BaseURL = baseURL
	cfg.Gateway.StreamURL = streamURL
	cfg.Gateway.TimeoutMS = 2000
	return cfg
}

func TestPositionsDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/positions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"positions":[{"contract_id":"ELECTION-2026","outcome_id":"CANDIDATE-A","quantity":50,"avg_price":0.55}]}`))
	}))
	defer srv.Close()

	g := New(venueConfig(srv.URL, ""), "key")
	got, err := g.Positions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Quantity != 50 || got[0].OutcomeID != "CANDIDATE-A" {
		t.Errorf("positions not decoded: %+v", got)
	}
}

func TestSubmitMapsRejectionStatuses(t *testing.T) {
	cases := []struct {
		status int
		reason types.RejectionReason
	}{
		{http.StatusUnauthorized, types.RejectAuthError},
		{http.StatusForbidden, types.RejectAuthError},
		{http.StatusTooManyRequests, types.RejectRateLimited},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		g := New(venueConfig(srv.URL, ""), "key")
		res, err := g.Submit(context.Background(), types.Order{ID: "o1"})
		srv.Close()
		if err != nil {
			t.Fatalf("status %d should map to a rejection, got error %v", tc.status, err)
		}
		if res.Status != types.OrderRejected || res.Reason != tc.reason {
			t.Errorf("status %d: got %+v, want reason %s", tc.status, res, tc.reason)
		}
	}
}

func TestSubmitNeverReplaysAfterConnectionLoss(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		// Drop the connection after the request is read, as if the
		// venue accepted the order but the reply never arrived.
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Fatalf("hijack: %v", err)
		}
		conn.Close()
	}))
	defer srv.Close()

	g := New(venueConfig(srv.URL, ""), "key")
	_, err := g.Submit(context.Background(), types.Order{ID: "o1"})
	if !errors.Is(err, types.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
	if got := posts.Load(); got != 1 {
		t.Errorf("order posted %d times; a replayed POST can double a position", got)
	}
	if !g.down.Load() {
		t.Error("transport loss on submit must mark the gateway unavailable")
	}
}

func TestPositionsRetriesAfterConnectionLoss(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gets.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"positions":[]}`))
	}))
	defer srv.Close()

	g := New(venueConfig(srv.URL, ""), "key")
	if _, err := g.Positions(context.Background()); err != nil {
		t.Fatalf("read should survive one dropped connection: %v", err)
	}
	if got := gets.Load(); got != 2 {
		t.Errorf("expected one retry, saw %d requests", got)
	}
}

func TestSubmitRefusedWhileDown(t *testing.T) {
	g := New(venueConfig("http://127.0.0.1:0", ""), "key")
	g.down.Store(true)
	if _, err := g.Submit(context.Background(), types.Order{ID: "o1"}); err != types.ErrGatewayUnavailable {
		t.Errorf("down gateway must refuse submissions, got %v", err)
	}
}

func TestStreamDecodesFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"fill","fill":{"id":"F1","contract_id":"ELECTION-2026","outcome_id":"CANDIDATE-A","side":"BUY","price":0.55,"quantity":10}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"delta","delta":{"ContractID":"ELECTION-2026","OutcomeID":"CANDIDATE-A","Side":"SELL","Price":0.56,"Size":0}}`))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := venueConfig(srv.URL, "ws"+strings.TrimPrefix(srv.URL, "http"))
	g := New(cfg, "key")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, err := g.Stream(ctx)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	ev := <-events
	if ev.Fill == nil || ev.Fill.ID != "F1" || ev.Fill.Quantity != 10 {
		t.Fatalf("expected the fill frame first, got %+v", ev)
	}
	ev = <-events
	if ev.Delta == nil || ev.Delta.Price != 0.56 {
		t.Fatalf("expected the delta frame, got %+v", ev)
	}

	// Server hangup closes the channel and halts new submissions.
	if _, ok := <-events; ok {
		t.Error("channel should close when the server hangs up")
	}
	if !g.down.Load() {
		t.Error("stream loss must mark the gateway unavailable")
	}
	g.Close(context.Background())
}
