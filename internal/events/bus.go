// Package events distributes interview notifications to optional observers.
package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/interview-coach/internal/model"
)

// Topic names an event kind.
type Topic string

const (
	SessionStarted  Topic = "session_started"
	QuestionAsked   Topic = "question_asked"
	AnswerEvaluated Topic = "answer_evaluated"
	SessionPaused   Topic = "session_paused"
	SessionResumed  Topic = "session_resumed"
	SessionFinished Topic = "session_finished"
)

// Topics lists every topic the bus carries.
var Topics = []Topic{
	SessionStarted,
	QuestionAsked,
	AnswerEvaluated,
	SessionPaused,
	SessionResumed,
	SessionFinished,
}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	for _, known := range Topics {
		if t == known {
			return true
		}
	}
	return false
}

// Event is one published notification. Payload is one of the payload types below.
type Event struct {
	Topic     Topic     `json:"topic"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

type StartedPayload struct {
	UserID string       `json:"user_id"`
	Domain model.Domain `json:"domain"`
}

type QuestionPayload struct {
	QuestionID string           `json:"question_id"`
	Difficulty model.Difficulty `json:"difficulty"`
}

type EvaluatedPayload struct {
	QuestionID string `json:"question_id"`
	Score      int    `json:"score"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

type FinishedPayload struct {
	NumQuestions int     `json:"num_questions"`
	AverageScore float64 `json:"average_score"`
	Persisted    bool    `json:"persisted"`
}

// Handler receives events. A returned error or a panic is logged and does not
// reach the publisher or other handlers.
type Handler func(Event) error

// Bus is a synchronous fan-out of events to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Topic][]Handler)}
}

// Subscribe registers h for a topic.
func (b *Bus) Subscribe(topic Topic, h Handler) error {
	if !topic.Valid() {
		return fmt.Errorf("unknown topic %q", topic)
	}
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], h)
	b.mu.Unlock()
	return nil
}

// SubscribeAll registers h for every topic.
func (b *Bus) SubscribeAll(h Handler) {
	for _, t := range Topics {
		_ = b.Subscribe(t, h)
	}
}

// Publish delivers ev to every handler of its topic in subscription order.
// A nil bus drops the event.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[ev.Topic]...)
	b.mu.RUnlock()

	for i, h := range hs {
		if err := deliver(h, ev); err != nil {
			slog.Warn("event handler failed",
				"topic", ev.Topic, "session_id", ev.SessionID, "handler", i, "error", err)
		}
	}
}

func deliver(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ev)
}

// LogSubscriber logs every event it receives.
func LogSubscriber(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ev Event) error {
		logger.Info("event", "topic", ev.Topic, "session_id", ev.SessionID, "payload", ev.Payload)
		return nil
	}
}
