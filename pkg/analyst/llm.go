package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/signal"
)

// ChatModel is the narrow collaborator interface the LLM analyst
// needs. Implementations wrap a model API client.
type ChatModel interface {
	Chat(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

const llmSystemPrompt = `You are an equity analyst on an investment committee.
Given a price summary, reply with a JSON object only:
{"recommendation": "BUY|SELL|HOLD|NEUTRAL", "confidence": 0.0-1.0,
 "drivers": ["..."], "risks": ["..."]}`

// LLMAnalyst delegates the evaluation to a chat model and parses the
// structured verdict from its reply.
type LLMAnalyst struct {
	kind  string
	model ChatModel
}

// NewLLMAnalyst creates an analyst backed by the given chat model.
// kind names the configured analyst slot, e.g. "llm".
func NewLLMAnalyst(kind string, model ChatModel) *LLMAnalyst {
	return &LLMAnalyst{kind: kind, model: model}
}

// Kind returns the analyst kind identifier
func (a *LLMAnalyst) Kind() string {
	return a.kind
}

// llmVerdict is the wire shape expected from the model
type llmVerdict struct {
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	Drivers        []string `json:"drivers"`
	Risks          []string `json:"risks"`
}

// Evaluate implements Analyst
func (a *LLMAnalyst) Evaluate(ctx context.Context, inst market.Instrument, series market.Series, feedback string) (*signal.Signal, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: empty series: %w", inst.Symbol, ErrDataUnavailable)
	}

	prompt := buildPrompt(inst, series, feedback)
	resp, err := a.model.Chat(ctx, llmSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: model call: %v: %w", inst.Symbol, err, ErrAnalysis)
	}

	var v llmVerdict
	if err := json.Unmarshal([]byte(extractJSON(resp)), &v); err != nil {
		return nil, fmt.Errorf("%s: parse model reply: %v: %w", inst.Symbol, err, ErrAnalysis)
	}

	rec := signal.Recommendation(strings.ToUpper(strings.TrimSpace(v.Recommendation)))
	if !rec.Valid() {
		return nil, fmt.Errorf("%s: model returned recommendation %q: %w", inst.Symbol, v.Recommendation, ErrAnalysis)
	}

	return newSignal(inst, a.kind, rec, v.Confidence, v.Drivers, v.Risks), nil
}

// buildPrompt summarizes the series compactly; the full history would
// waste context without improving the verdict.
func buildPrompt(inst market.Instrument, series market.Series, feedback string) string {
	closes := series.Closes()
	first, last := closes[0], closes[len(closes)-1]
	change := 0.0
	if first != 0 {
		change = (last - first) / first * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Instrument: %s (%s)\n", inst.Symbol, inst.Name)
	if inst.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", inst.Sector)
	}
	fmt.Fprintf(&b, "Bars: %d\n", len(series))
	fmt.Fprintf(&b, "First close: %.2f, last close: %.2f (%+.1f%%)\n", first, last, change)

	if feedback != "" {
		fmt.Fprintf(&b, "\nA reviewer rejected your previous report:\n%s\nAddress the objection.\n", feedback)
	}
	return b.String()
}

// extractJSON extracts a JSON payload from a reply that may wrap it in
// markdown fences or surrounding prose
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "```json"); idx != -1 {
		start := idx + 7
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimSpace(s[start : start+end])
		}
	}

	if idx := strings.Index(s, "```"); idx != -1 {
		start := idx + 3
		if newline := strings.Index(s[start:], "\n"); newline != -1 {
			start += newline + 1
		}
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimSpace(s[start : start+end])
		}
	}

	// Raw object or array: match the first balanced bracket pair
	if idx := strings.IndexAny(s, "{["); idx != -1 {
		depth := 0
		inString := false
		escape := false
		for i := idx; i < len(s); i++ {
			c := s[i]
			if escape {
				escape = false
				continue
			}
			if c == '\\' && inString {
				escape = true
				continue
			}
			if c == '"' {
				inString = !inString
				continue
			}
			if inString {
				continue
			}
			if c == '{' || c == '[' {
				depth++
			} else if c == '}' || c == ']' {
				depth--
				if depth == 0 {
					return s[idx : i+1]
				}
			}
		}
	}

	return s
}
