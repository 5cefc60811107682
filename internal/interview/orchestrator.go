// Package interview drives interview sessions: it asks questions, evaluates
// answers, records results and builds the final summary.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pavelanni/interview-coach/internal/events"
	"github.com/pavelanni/interview-coach/internal/model"
	"github.com/pavelanni/interview-coach/internal/session"
)

// QuestionPicker selects an unseen question.
type QuestionPicker interface {
	Pick(domain model.Domain, difficulty model.Difficulty, exclude []string) (model.Question, error)
}

// Evaluator scores an answer. It never fails.
type Evaluator interface {
	Evaluate(ctx context.Context, question, referenceAnswer, answer string) model.Evaluation
}

// state is the transient per-session state of an active interview.
type state struct {
	mu       sync.Mutex
	id       string
	userID   string
	domain   model.Domain
	asked    []model.Question
	current  *model.Question
	paused   bool
	scores   []int
	finished bool
}

// Orchestrator is the interview state machine. Distinct sessions can be driven
// concurrently; calls for one session are serialized.
type Orchestrator struct {
	questions QuestionPicker
	evaluator Evaluator
	sessions  *session.Manager
	bus       *events.Bus

	mu     sync.RWMutex
	active map[string]*state
}

// New creates an Orchestrator. bus may be nil.
func New(questions QuestionPicker, evaluator Evaluator, sessions *session.Manager, bus *events.Bus) *Orchestrator {
	return &Orchestrator{
		questions: questions,
		evaluator: evaluator,
		sessions:  sessions,
		bus:       bus,
		active:    make(map[string]*state),
	}
}

// lookup returns the locked state of an active session. The caller must unlock it.
func (o *Orchestrator) lookup(id string) (*state, error) {
	o.mu.RLock()
	st, ok := o.active[id]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, model.ErrSessionNotFound)
	}
	st.mu.Lock()
	if st.finished {
		st.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, model.ErrSessionNotFound)
	}
	return st, nil
}

// Start begins a session and returns its id.
func (o *Orchestrator) Start(ctx context.Context, userID string, domain model.Domain) string {
	id := o.sessions.Create(userID)
	o.sessions.Start(id, userID, domain)

	o.mu.Lock()
	o.active[id] = &state{id: id, userID: userID, domain: domain}
	o.mu.Unlock()

	slog.Info("session started", "session_id", id, "user", userID, "domain", domain)
	o.bus.Publish(events.Event{
		Topic:     events.SessionStarted,
		SessionID: id,
		Payload:   events.StartedPayload{UserID: userID, Domain: domain},
	})
	return id
}

// AskNext picks a question of the given difficulty that the session has not
// seen yet. An empty difficulty means the next one in the difficulty flow.
func (o *Orchestrator) AskNext(ctx context.Context, id string, difficulty model.Difficulty) (model.Question, error) {
	st, err := o.lookup(id)
	if err != nil {
		return model.Question{}, err
	}
	defer st.mu.Unlock()

	if st.current != nil {
		return model.Question{}, fmt.Errorf("session %s: %w", id, model.ErrQuestionPending)
	}
	if difficulty == "" {
		difficulty = flowStep(len(st.asked))
	}

	exclude := make([]string, len(st.asked))
	for i, q := range st.asked {
		exclude[i] = q.ID
	}
	q, err := o.questions.Pick(st.domain, difficulty, exclude)
	if err != nil {
		return model.Question{}, fmt.Errorf("session %s: %w", id, err)
	}

	st.asked = append(st.asked, q)
	st.current = &q

	o.bus.Publish(events.Event{
		Topic:     events.QuestionAsked,
		SessionID: id,
		Payload:   events.QuestionPayload{QuestionID: q.ID, Difficulty: q.Difficulty},
	})
	return q, nil
}

// SubmitAnswer evaluates an answer to the pending question and records it.
// model.TimeoutAnswer stands for a candidate who ran out of time.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, id, answer string) (model.Evaluation, error) {
	st, err := o.lookup(id)
	if err != nil {
		return model.Evaluation{}, err
	}
	defer st.mu.Unlock()

	if st.current == nil {
		return model.Evaluation{}, fmt.Errorf("session %s: %w", id, model.ErrNoCurrentQuestion)
	}
	q := *st.current

	ev := o.evaluator.Evaluate(ctx, q.Text, q.ReferenceAnswer, answer)
	if err := o.sessions.Record(id, q, ev); err != nil {
		return model.Evaluation{}, err
	}
	st.scores = append(st.scores, ev.Score)
	st.current = nil

	o.bus.Publish(events.Event{
		Topic:     events.AnswerEvaluated,
		SessionID: id,
		Payload: events.EvaluatedPayload{
			QuestionID: q.ID,
			Score:      ev.Score,
			TimedOut:   answer == model.TimeoutAnswer,
		},
	})
	return ev, nil
}

// Pause marks a session as paused. The flag is advisory.
func (o *Orchestrator) Pause(ctx context.Context, id string) error {
	return o.setPaused(id, true, events.SessionPaused)
}

// Resume clears the paused flag.
func (o *Orchestrator) Resume(ctx context.Context, id string) error {
	return o.setPaused(id, false, events.SessionResumed)
}

func (o *Orchestrator) setPaused(id string, paused bool, topic events.Topic) error {
	st, err := o.lookup(id)
	if err != nil {
		return err
	}
	st.paused = paused
	st.mu.Unlock()

	o.bus.Publish(events.Event{Topic: topic, SessionID: id})
	return nil
}

// Paused reports whether an active session is paused.
func (o *Orchestrator) Paused(id string) (bool, error) {
	st, err := o.lookup(id)
	if err != nil {
		return false, err
	}
	defer st.mu.Unlock()
	return st.paused, nil
}

// Finish ends a session and returns its summary. Sessions that are no longer
// active are summarized from the store. Persistence failures are logged.
func (o *Orchestrator) Finish(ctx context.Context, id string) (model.Summary, error) {
	o.mu.Lock()
	st, active := o.active[id]
	delete(o.active, id)
	o.mu.Unlock()

	if active {
		st.mu.Lock()
		st.finished = true
		st.current = nil
		st.mu.Unlock()
	}

	rec, ok := o.sessions.Load(ctx, id)
	if !ok {
		return model.Summary{}, fmt.Errorf("session %s: %w", id, model.ErrSessionNotFound)
	}
	summary := Summarize(rec)

	persisted := true
	if err := o.sessions.Persist(ctx, id); err != nil {
		persisted = false
		slog.Error("persist session", "session_id", id, "error", err)
	}
	if active {
		if err := o.sessions.MergeWeaknesses(ctx, rec); err != nil {
			slog.Warn("update profile", "session_id", id, "user", rec.UserID, "error", err)
		}
	}
	if persisted {
		o.sessions.Evict(id)
	}

	slog.Info("session finished", "session_id", id,
		"questions", summary.NumQuestions, "average", summary.AverageScore)
	o.bus.Publish(events.Event{
		Topic:     events.SessionFinished,
		SessionID: id,
		Payload: events.FinishedPayload{
			NumQuestions: summary.NumQuestions,
			AverageScore: summary.AverageScore,
			Persisted:    persisted,
		},
	})
	return summary, nil
}

// NextDifficulty returns the difficulty of the next question in the flow, or
// false when every step of the flow has been asked.
func (o *Orchestrator) NextDifficulty(id string) (model.Difficulty, bool, error) {
	st, err := o.lookup(id)
	if err != nil {
		return "", false, err
	}
	defer st.mu.Unlock()
	if len(st.asked) >= len(model.DifficultyFlow) {
		return "", false, nil
	}
	return model.DifficultyFlow[len(st.asked)], true, nil
}

// Session returns the record of an active or stored session.
func (o *Orchestrator) Session(ctx context.Context, id string) (model.SessionRecord, error) {
	rec, ok := o.sessions.Load(ctx, id)
	if !ok {
		return model.SessionRecord{}, fmt.Errorf("session %s: %w", id, model.ErrSessionNotFound)
	}
	return rec, nil
}

// Profile returns the aggregated profile of a user.
func (o *Orchestrator) Profile(ctx context.Context, userID string) (model.Profile, error) {
	return o.sessions.Profile(ctx, userID)
}

// flowStep maps the number of asked questions to a difficulty, staying on the
// last level once the flow is exhausted.
func flowStep(asked int) model.Difficulty {
	if asked >= len(model.DifficultyFlow) {
		return model.DifficultyFlow[len(model.DifficultyFlow)-1]
	}
	return model.DifficultyFlow[asked]
}
