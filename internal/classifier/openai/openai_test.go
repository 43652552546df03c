package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

func testContract() types.Contract {
	return types.Contract{ID: "ELECTION-2026", Outcomes: []string{"CANDIDATE-A", "CANDIDATE-B"}}
}

func TestClassifyParsesChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"score\": 4, \"confidence\": 0.85}"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_ENDPOINT", srv.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")

	c := New("openai-1", store.ClassifierConfig{Provider: "OPENAI", Model: "gpt-4o-mini"})
	cl, err := c.Classify(context.Background(), types.Observation{ID: "obs-1", RawContent: "headline"}, testContract())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cl.Score != 4 || cl.Confidence != 0.85 {
		t.Errorf("got score %d confidence %v", cl.Score, cl.Confidence)
	}
	if cl.ClassifierID != "openai-1" || cl.ObservationID != "obs-1" {
		t.Errorf("ids not propagated: %+v", cl)
	}
}

func TestClassifyErrorPaths(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		c := New("openai-1", store.ClassifierConfig{})
		if _, err := c.Classify(context.Background(), types.Observation{ID: "obs-1"}, testContract()); err == nil {
			t.Fatal("expected error without API key")
		}
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()
		t.Setenv("OPENAI_API_ENDPOINT", srv.URL)
		t.Setenv("OPENAI_API_KEY", "test-key")

		c := New("openai-1", store.ClassifierConfig{})
		if _, err := c.Classify(context.Background(), types.Observation{ID: "obs-1"}, testContract()); err == nil {
			t.Fatal("expected error on 429")
		}
	})

	t.Run("unparsable reply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"content":"no idea"}}]}`))
		}))
		defer srv.Close()
		t.Setenv("OPENAI_API_ENDPOINT", srv.URL)
		t.Setenv("OPENAI_API_KEY", "test-key")

		c := New("openai-1", store.ClassifierConfig{})
		if _, err := c.Classify(context.Background(), types.Observation{ID: "obs-1"}, testContract()); err == nil {
			t.Fatal("expected abstention error on unparsable reply")
		}
	})
}
