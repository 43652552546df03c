package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"news-trading-bot/internal/classifier"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

// Classifier scores observations with the Anthropic Claude Messages API.
type Classifier struct {
	id       string
	cfg      store.ClassifierConfig
	endpoint string
}

// New builds a Claude-backed classifier. Set CLAUDE_API_ENDPOINT to
// route through a proxy; the public endpoint is the default.
func New(id string, cfg store.ClassifierConfig) *Classifier {
	endpoint := "https://api.anthropic.com/v1/messages"
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Classifier{id: id, cfg: cfg, endpoint: endpoint}
}

func (c *Classifier) ID() string { return c.id }

// Classify sends the observation text and contract description to
// Claude and parses the strict-JSON score reply.
func (c *Classifier) Classify(ctx context.Context, obs types.Observation, contract types.Contract) (types.Classification, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return types.Classification{}, errors.New("CLAUDE_API_KEY missing")
	}

	system := c.cfg.System
	if system == "" {
		system = "You are a news relevance judge for a prediction market. Output STRICT JSON: {\"score\": <integer -1..4>, \"confidence\": <0..1>}."
	}
	state := map[string]any{
		"headline": obs.RawContent,
		"contract": contract.ID,
		"outcomes": contract.Outcomes,
	}
	stateB, _ := json.Marshal(state)
	user := fmt.Sprintf("State:%s\n\nRespond ONLY with compact JSON: {\"score\": <integer -1..4>, \"confidence\": <0..1>}.", string(stateB))

	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}
	bb, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(bb))
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return types.Classification{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return types.Classification{}, fmt.Errorf("claude http %d: %s", resp.StatusCode, string(body))
	}

	respBytes, _ := io.ReadAll(resp.Body)

	// Drill common response shapes for the assistant text, then parse
	// the score JSON out of it.
	var anyResp any
	if err := json.Unmarshal(respBytes, &anyResp); err != nil {
		return c.fromText(obs.ID, string(respBytes))
	}
	if m, ok := anyResp.(map[string]any); ok {
		if content, found := m["content"]; found {
			if arr, ok2 := content.([]any); ok2 && len(arr) > 0 {
				if block, ok3 := arr[0].(map[string]any); ok3 {
					if text, ok4 := block["text"].(string); ok4 && strings.TrimSpace(text) != "" {
						return c.fromText(obs.ID, text)
					}
				}
			}
		}
		for _, k := range []string{"completion", "output", "output_text", "result"} {
			if v, exists := m[k]; exists {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					return c.fromText(obs.ID, s)
				}
			}
		}
	}
	return c.fromText(obs.ID, string(respBytes))
}

func (c *Classifier) fromText(obsID, text string) (types.Classification, error) {
	score, confidence, err := classifier.ParseScore(text)
	if err != nil {
		return types.Classification{}, err
	}
	return types.Classification{
		ObservationID: obsID,
		ClassifierID:  c.id,
		Score:         score,
		Confidence:    confidence,
		ProducedAt:    time.Now().UTC(),
	}, nil
}
