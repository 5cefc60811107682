// Package questions holds the read-only question corpus and picks unseen questions from it.
package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/interview-coach/internal/model"
)

// Bank is the question repository: domain -> difficulty -> questions.
type Bank struct {
	pool map[model.Domain]map[model.Difficulty][]model.Question

	mu  sync.Mutex
	rng *rand.Rand
}

// entry is one question as it appears in the corpus file.
type entry struct {
	ID     flexID `json:"id" yaml:"id"`
	Q      string `json:"q" yaml:"q"`
	Answer string `json:"answer" yaml:"answer"`
}

// flexID accepts both numeric and string ids.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type corpus map[string]map[string][]entry

// Load reads a corpus file. Files ending in .yaml or .yml are parsed as YAML,
// everything else as JSON.
func Load(path string, rng *rand.Rand) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var c corpus
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fromCorpus(c, rng)
}

// Parse builds a bank from JSON corpus bytes.
func Parse(data []byte, rng *rand.Rand) (*Bank, error) {
	var c corpus
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return fromCorpus(c, rng)
}

func fromCorpus(c corpus, rng *rand.Rand) (*Bank, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	b := &Bank{
		pool: make(map[model.Domain]map[model.Difficulty][]model.Question),
		rng:  rng,
	}
	seen := make(map[string]bool)
	for domain, levels := range c {
		d := model.Domain(domain)
		b.pool[d] = make(map[model.Difficulty][]model.Question)
		for level, entries := range levels {
			diff := model.Difficulty(level)
			for _, e := range entries {
				id := string(e.ID)
				if id == "" {
					return nil, fmt.Errorf("question without id in %s/%s", domain, level)
				}
				key := domain + "/" + id
				if seen[key] {
					return nil, fmt.Errorf("duplicate question id %q in domain %s", id, domain)
				}
				seen[key] = true
				b.pool[d][diff] = append(b.pool[d][diff], model.Question{
					ID:              id,
					Text:            e.Q,
					ReferenceAnswer: e.Answer,
					Domain:          d,
					Difficulty:      diff,
				})
			}
		}
	}
	return b, nil
}

// Pick returns a random question for domain and difficulty whose id is not in exclude.
// When the difficulty is exhausted it falls back to any difficulty of the domain.
func (b *Bank) Pick(domain model.Domain, difficulty model.Difficulty, exclude []string) (model.Question, error) {
	levels := b.pool[domain]
	candidates := filterOut(levels[difficulty], exclude)
	if len(candidates) == 0 {
		var all []model.Question
		for _, d := range model.DifficultyFlow {
			all = append(all, levels[d]...)
		}
		for d, qs := range levels {
			if !slices.Contains(model.DifficultyFlow, d) {
				all = append(all, qs...)
			}
		}
		candidates = filterOut(all, exclude)
	}
	if len(candidates) == 0 {
		return model.Question{}, fmt.Errorf("%s/%s: %w", domain, difficulty, model.ErrExhaustedPool)
	}

	b.mu.Lock()
	i := b.rng.IntN(len(candidates))
	b.mu.Unlock()
	return candidates[i], nil
}

// Domains lists the domains present in the corpus, sorted.
func (b *Bank) Domains() []model.Domain {
	out := make([]model.Domain, 0, len(b.pool))
	for d := range b.pool {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Count returns how many questions a domain holds across all difficulties.
func (b *Bank) Count(domain model.Domain) int {
	n := 0
	for _, qs := range b.pool[domain] {
		n += len(qs)
	}
	return n
}

func filterOut(qs []model.Question, exclude []string) []model.Question {
	if len(exclude) == 0 {
		return slices.Clone(qs)
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var out []model.Question
	for _, q := range qs {
		if !skip[q.ID] {
			out = append(out, q)
		}
	}
	return out
}
