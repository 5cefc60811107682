// Package evaluator scores candidate answers against reference answers.
//
// A Service has a primary strategy (heuristic or remote) and always keeps the
// heuristic strategy as a fallback, so Evaluate never fails.
package evaluator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pavelanni/interview-coach/internal/llm"
	"github.com/pavelanni/interview-coach/internal/llm/prompts"
	"github.com/pavelanni/interview-coach/internal/model"
)

// Strategy names accepted in configuration.
const (
	StrategyHeuristic = "heuristic"
	StrategyRemote    = "remote"
)

// DefaultTimeout bounds a remote evaluation when none is configured.
const DefaultTimeout = 20 * time.Second

// Input is one answer to score.
type Input struct {
	Question        string
	ReferenceAnswer string
	Answer          string
}

// Strategy is one way of scoring an answer.
type Strategy interface {
	Evaluate(ctx context.Context, in Input) (model.Evaluation, error)
	Name() string
}

// Service is the single entry point for answer evaluation.
type Service struct {
	primary   Strategy
	heuristic *Heuristic
}

// New builds a Service from configuration. provider may be nil, in which case
// a remote configuration degrades to heuristic scoring on every call.
func New(cfg model.InterviewConfig, provider llm.Provider) *Service {
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	h := NewHeuristic(rng)

	s := &Service{primary: h, heuristic: h}
	if cfg.Evaluator == StrategyRemote {
		variant := prompts.PromptVariant(cfg.PromptVariant)
		if !prompts.IsValidVariant(cfg.PromptVariant) {
			variant = prompts.PromptStandard
		}
		s.primary = NewRemote(provider, variant, cfg.EvalTimeout)
	}
	return s
}

// NewWithStrategy wraps an arbitrary primary strategy with heuristic fallback.
func NewWithStrategy(primary Strategy, fallback *Heuristic) *Service {
	if fallback == nil {
		fallback = NewHeuristic(nil)
	}
	if primary == nil {
		primary = fallback
	}
	return &Service{primary: primary, heuristic: fallback}
}

// Strategy returns the name of the primary strategy.
func (s *Service) Strategy() string {
	return s.primary.Name()
}

// Evaluate scores an answer. Failures of the primary strategy are logged and
// resolved with the heuristic strategy.
func (s *Service) Evaluate(ctx context.Context, question, referenceAnswer, answer string) model.Evaluation {
	in := Input{Question: question, ReferenceAnswer: referenceAnswer, Answer: answer}

	ev, err := s.primary.Evaluate(ctx, in)
	if err != nil {
		slog.Warn("evaluation failed, falling back to heuristic",
			"strategy", s.primary.Name(), "error", err)
		ev, _ = s.heuristic.Evaluate(ctx, in)
	}
	return Normalize(ev)
}

// Normalize clamps the score to [0, 10] and caps suggestions.
func Normalize(ev model.Evaluation) model.Evaluation {
	ev.Score = clampScore(ev.Score)
	if ev.Feedback == "" {
		ev.Feedback = "No feedback."
	}
	if len(ev.Suggestions) > model.MaxSuggestions {
		ev.Suggestions = ev.Suggestions[:model.MaxSuggestions]
	}
	if ev.Suggestions == nil {
		ev.Suggestions = []string{}
	}
	return ev
}

func clampScore(score int) int {
	return max(0, min(model.MaxScore, score))
}
