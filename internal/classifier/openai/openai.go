package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"news-trading-bot/internal/classifier"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

// Classifier scores observations with the OpenAI chat completions API.
type Classifier struct {
	id       string
	cfg      store.ClassifierConfig
	endpoint string
}

func New(id string, cfg store.ClassifierConfig) *Classifier {
	endpoint := "https://api.openai.com/v1/chat/completions"
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Classifier{id: id, cfg: cfg, endpoint: endpoint}
}

func (c *Classifier) ID() string { return c.id }

func (c *Classifier) Classify(ctx context.Context, obs types.Observation, contract types.Contract) (types.Classification, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return types.Classification{}, errors.New("OPENAI_API_KEY missing")
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
	sb, _ := json.Marshal(state)
	prompt := fmt.Sprintf("You will receive state as JSON. Respond ONLY with compact JSON: {\"score\": <integer -1..4>, \"confidence\": <0..1>}.\nState:%s", string(sb))

	body := map[string]any{
		"model":       c.cfg.Model,
		"messages":    []map[string]string{{"role": "system", "content": system}, {"role": "user", "content": prompt}},
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(bb))
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return types.Classification{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return types.Classification{}, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.Classification{}, err
	}
	if len(r.Choices) == 0 {
		return types.Classification{}, errors.New("no choices")
	}

	score, confidence, err := classifier.ParseScore(strings.TrimSpace(r.Choices[0].Message.Content))
	if err != nil {
		return types.Classification{}, err
	}
	return types.Classification{
		ObservationID: obs.ID,
		ClassifierID:  c.id,
		Score:         score,
		Confidence:    confidence,
		ProducedAt:    time.Now().UTC(),
	}, nil
}
