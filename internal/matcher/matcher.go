// Package matcher parses the AI model's product-match output. The model is
// asked for JSON but occasionally wraps it in markdown fences or returns
// prose; parse failure is kept distinguishable from "no matches" so callers
// can log the difference instead of silently coercing one into the other.
package matcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Recommendations the model must classify every match into.
var Recommendations = []string{
	"price_competitively",
	"lower_price",
	"raise_price",
	"highlight_value",
	"monitor",
}

// ErrUnparseable marks an AI response that could not be decoded as JSON.
// Callers treat it as zero matches but log it as a parse failure.
var ErrUnparseable = errors.New("AI response is not valid match JSON")

// Match is one AI-produced pairing of a competitor product with ours.
type Match struct {
	CompetitorName string   `json:"competitor_name"`
	OurProductName string   `json:"our_product_name"`
	OurPrice       *float64 `json:"our_price,omitempty"`
	Recommendation string   `json:"recommendation"`
}

type matchPayload struct {
	Matches []Match `json:"matches"`
}

// Parse decodes the model output into matches. A response that decodes but
// holds no matches returns an empty slice and nil error; a response that
// cannot be decoded returns ErrUnparseable.
func Parse(raw string) ([]Match, error) {
	cleaned := StripFences(raw)
	if strings.TrimSpace(cleaned) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseable)
	}

	var payload matchPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		return payload.Matches, nil
	}

	// Some models answer with a bare array instead of the wrapper object.
	var matches []Match
	if err := json.Unmarshal([]byte(cleaned), &matches); err == nil {
		return matches, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnparseable, truncate(cleaned, 120))
}

// StripFences removes a wrapping markdown code fence if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
