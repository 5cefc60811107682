package evaluator

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pavelanni/interview-coach/internal/i18n"
	"github.com/pavelanni/interview-coach/internal/model"
)

// MinAnswerLength is the shortest trimmed answer, in characters, the heuristic will score.
const MinAnswerLength = 5

type category struct {
	name     string
	keywords []string
}

// taxonomy maps a topic domain to its keyword categories.
var taxonomy = map[model.Domain][]category{
	model.DomainJava: {
		{"oop", []string{"encapsulation", "inheritance", "polymorphism", "abstraction"}},
		{"collections", []string{"arraylist", "linkedlist", "hashmap", "set", "iterator"}},
		{"memory", []string{"heap", "stack", "garbage collector", "gc", "jvm"}},
		{"threads", []string{"multithreading", "synchronized", "thread", "runnable", "concurrency"}},
		{"jvm", []string{"bytecode", "classloader", "jit", "jre"}},
	},
	model.DomainPython: {
		{"basics", []string{"indentation", "dynamic typing", "lists", "tuples", "dict", "set"}},
		{"oop", []string{"class", "object", "inheritance", "polymorphism", "method overriding"}},
		{"advanced", []string{"decorators", "generators", "lambda", "list comprehension"}},
		{"modules", []string{"import", "pip", "virtualenv", "package"}},
		{"memory", []string{"garbage collector", "reference counting"}},
	},
	model.DomainDSA: {
		{"arrays", []string{"array", "index", "time complexity", "big o"}},
		{"linkedlist", []string{"node", "pointer", "head", "tail", "insertion"}},
		{"sorting", []string{"merge sort", "quick sort", "bubble sort", "insertion sort", "nlogn"}},
		{"trees", []string{"binary tree", "bst", "traversal", "dfs", "bfs", "height"}},
		{"graphs", []string{"dfs", "bfs", "adjacency", "shortest path", "dijkstra"}},
		{"dp", []string{"dynamic programming", "recursion", "memoization", "tabulation"}},
	},
}

var (
	javaMarkers   = []string{"java", "jvm", "oop", "jdk"}
	pythonMarkers = []string{"python", "py", "indent", "list"}
)

// Heuristic scores answers by counting domain keywords. It never fails.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic creates a heuristic strategy. A nil rng is seeded randomly.
func NewHeuristic(rng *rand.Rand) *Heuristic {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Heuristic{rng: rng}
}

func (h *Heuristic) Name() string { return StrategyHeuristic }

func (h *Heuristic) Evaluate(ctx context.Context, in Input) (model.Evaluation, error) {
	answer := strings.TrimSpace(in.Answer)
	if answer == model.TimeoutAnswer || utf8.RuneCountInString(answer) < MinAnswerLength {
		return model.Evaluation{
			Score:       0,
			Feedback:    i18n.T(ctx, "AnswerTooShort"),
			Suggestions: []string{i18n.T(ctx, "SuggestMoreDetail")},
		}, nil
	}

	domain := detectDomain(in.Question)
	hits := countHits(domain, strings.ToLower(answer))

	base := math.Min(1.0, 0.4+0.18*float64(hits)+h.jitter())
	score := clampScore(int(math.RoundToEven(base * 10)))

	data := map[string]any{"Domain": strings.ToUpper(string(domain))}
	switch {
	case score >= 7:
		return model.Evaluation{
			Score:       score,
			Feedback:    i18n.Td(ctx, "FeedbackStrong", data),
			Suggestions: []string{i18n.T(ctx, "SuggestExample")},
		}, nil
	case score >= 4:
		return model.Evaluation{
			Score:    score,
			Feedback: i18n.Td(ctx, "FeedbackFair", data),
			Suggestions: []string{
				i18n.T(ctx, "SuggestSteps"),
				i18n.T(ctx, "SuggestTerminology"),
			},
		}, nil
	default:
		return model.Evaluation{
			Score:    score,
			Feedback: i18n.Td(ctx, "FeedbackWeak", data),
			Suggestions: []string{
				i18n.T(ctx, "SuggestFundamentals"),
				i18n.T(ctx, "SuggestDefinitions"),
				i18n.T(ctx, "SuggestSimpleSteps"),
			},
		}, nil
	}
}

// jitter returns uniform noise in [-0.1, 0.1).
func (h *Heuristic) jitter() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64()*0.2 - 0.1
}

// detectDomain sniffs the topic of a question. DSA is the generic fallback.
func detectDomain(question string) model.Domain {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, javaMarkers):
		return model.DomainJava
	case containsAny(q, pythonMarkers):
		return model.DomainPython
	default:
		return model.DomainDSA
	}
}

// countHits counts keyword matches; a keyword listed in two categories counts twice.
func countHits(domain model.Domain, answer string) int {
	hits := 0
	for _, c := range taxonomy[domain] {
		for _, kw := range c.keywords {
			if strings.Contains(answer, kw) {
				hits++
			}
		}
	}
	return hits
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
