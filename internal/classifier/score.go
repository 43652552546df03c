// Package classifier holds the pieces shared by the provider-specific
// classifier implementations under this directory.
package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseScore locates the first JSON object in a model reply and
// extracts the score and confidence fields. A reply with no parsable
// object is an abstention, not a neutral vote, so it returns an error
// rather than a default.
func ParseScore(text string) (int, float64, error) {
	t := strings.TrimSpace(text)
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return 0, 0, fmt.Errorf("no JSON object in classifier reply: %q", t)
	}

	var out struct {
		Score      int     `json:"score"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(t[start:end+1]), &out); err != nil {
		return 0, 0, fmt.Errorf("malformed classifier reply: %w", err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		out.Confidence = 0
	}
	return out.Score, out.Confidence, nil
}
