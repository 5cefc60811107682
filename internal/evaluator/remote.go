package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/interview-coach/internal/llm"
	"github.com/pavelanni/interview-coach/internal/llm/prompts"
	"github.com/pavelanni/interview-coach/internal/model"
)

const systemPrompt = "You are an interview evaluator. You answer with a single JSON object."

// Remote scores answers with a language model.
type Remote struct {
	provider llm.Provider
	variant  prompts.PromptVariant
	timeout  time.Duration
}

// NewRemote creates a remote strategy. A nil provider makes every call fail
// with model.ErrEvaluationUnavailable.
func NewRemote(provider llm.Provider, variant prompts.PromptVariant, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Remote{provider: provider, variant: variant, timeout: timeout}
}

func (r *Remote) Name() string { return StrategyRemote }

func (r *Remote) Evaluate(ctx context.Context, in Input) (model.Evaluation, error) {
	if r.provider == nil {
		return model.Evaluation{}, fmt.Errorf("%w: no provider configured", model.ErrEvaluationUnavailable)
	}

	prompt, err := prompts.BuildEvalPrompt(r.variant, in.Question, in.ReferenceAnswer, in.Answer)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("build prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("%w: %w", model.ErrEvaluationUnavailable, err)
	}
	slog.Debug("remote evaluation", "model", resp.Model, "latency_ms", time.Since(start).Milliseconds())

	return parseEvaluation(resp.Content)
}

// parseEvaluation extracts, validates and coerces a model response.
func parseEvaluation(text string) (model.Evaluation, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return model.Evaluation{}, &llm.ErrInvalidResponse{Content: text, Err: fmt.Errorf("no JSON object found")}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return model.Evaluation{}, &llm.ErrInvalidResponse{Content: text, Err: err}
	}
	if err := validateEvaluation(parsed); err != nil {
		return model.Evaluation{}, &llm.ErrInvalidResponse{Content: text, Err: err}
	}

	score, err := coerceScore(parsed["score"])
	if err != nil {
		return model.Evaluation{}, &llm.ErrInvalidResponse{Content: text, Err: err}
	}

	ev := model.Evaluation{Score: score}
	if fb, ok := parsed["feedback"].(string); ok {
		ev.Feedback = fb
	}
	if list, ok := parsed["suggestions"].([]any); ok {
		for _, s := range list {
			if len(ev.Suggestions) == model.MaxSuggestions {
				break
			}
			ev.Suggestions = append(ev.Suggestions, stringify(s))
		}
	}
	return ev, nil
}

func coerceScore(v any) (int, error) {
	var f float64
	switch s := v.(type) {
	case float64:
		f = s
	case string:
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("score %q is not a number", s)
		}
	default:
		return 0, fmt.Errorf("score has unexpected type %T", v)
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("score is NaN")
	}
	// Clamp before converting; out-of-range float to int conversion is undefined.
	return int(math.Round(math.Max(0, math.Min(model.MaxScore, f)))), nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprint(s)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprint(s)
		}
		return string(b)
	}
}

// extractJSON returns the largest parseable JSON object embedded in text,
// which lets responses wrapped in code fences or prose through.
func extractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return text, true
	}

	best := ""
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			continue
		}
		seg := text[i : end+1]
		if len(seg) > len(best) && json.Valid([]byte(seg)) {
			best = seg
		}
	}
	return best, best != ""
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
