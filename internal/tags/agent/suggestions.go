package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	MinConfidence  = 0.5
	MaxSuggestions = 5
)

// Suggestion is one profession proposed for a description.
type Suggestion struct {
	Profession  string  `json:"profession"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// ParseSuggestions accepts either a bare JSON array or {"tags": [...]},
// optionally wrapped in a markdown fence. Confidences are clamped to [0,1],
// weak or unnamed suggestions are dropped and duplicates collapse onto the
// most confident entry.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	text := stripFence(strings.TrimSpace(raw))
	if text == "" {
		return nil, fmt.Errorf("empty tag generator reply")
	}

	var items []Suggestion
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("decode tag suggestions: %w", err)
		}
	} else {
		var wrapped struct {
			Tags []Suggestion `json:"tags"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return nil, fmt.Errorf("decode tag suggestions: %w", err)
		}
		items = wrapped.Tags
	}

	best := make(map[string]Suggestion)
	order := make([]string, 0, len(items))
	for _, s := range items {
		s.Profession = strings.TrimSpace(s.Profession)
		s.Description = strings.TrimSpace(s.Description)
		s.Confidence = clamp(s.Confidence)
		if s.Profession == "" || s.Confidence < MinConfidence {
			continue
		}
		key := strings.ToLower(s.Profession)
		prev, seen := best[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || s.Confidence > prev.Confidence {
			best[key] = s
		}
	}

	out := make([]Suggestion, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
