package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestPublishDeliversInOrder(t *testing.T) {
	b := NewBus()
	var got []string
	for _, name := range []string{"first", "second"} {
		if err := b.Subscribe(SessionStarted, func(ev Event) error {
			got = append(got, name+":"+ev.SessionID)
			return nil
		}); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}

	b.Publish(Event{Topic: SessionStarted, SessionID: "s1"})
	b.Publish(Event{Topic: SessionFinished, SessionID: "s1"})

	want := []string{"first:s1", "second:s1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHandlerFailuresAreIsolated(t *testing.T) {
	b := NewBus()
	calls := 0
	b.SubscribeAll(func(Event) error { panic("boom") })
	b.SubscribeAll(func(Event) error { return errors.New("nope") })
	b.SubscribeAll(func(Event) error { calls++; return nil })

	for _, topic := range Topics {
		b.Publish(Event{Topic: topic, SessionID: "s"})
	}
	if calls != len(Topics) {
		t.Fatalf("expected healthy handler to run %d times, got %d", len(Topics), calls)
	}
}

func TestSubscribeUnknownTopic(t *testing.T) {
	b := NewBus()
	if err := b.Subscribe("session_exploded", func(Event) error { return nil }); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}

func TestNilBusDropsEvents(t *testing.T) {
	var b *Bus
	b.Publish(Event{Topic: SessionStarted})
}

func TestPublishStampsTime(t *testing.T) {
	b := NewBus()
	var ev Event
	_ = b.Subscribe(QuestionAsked, func(e Event) error { ev = e; return nil })
	b.Publish(Event{Topic: QuestionAsked, Payload: QuestionPayload{QuestionID: "j1", Difficulty: "easy"}})
	if ev.At.IsZero() {
		t.Fatal("expected publish time to be set")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("payload must be JSON serializable: %v", err)
	}
	if !strings.Contains(string(data), `"question_id":"j1"`) {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	n := 0
	b.SubscribeAll(func(Event) error { mu.Lock(); n++; mu.Unlock(); return nil })

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				b.Publish(Event{Topic: AnswerEvaluated})
			}
		}()
	}
	wg.Wait()
	if n != 100 {
		t.Fatalf("expected 100 deliveries, got %d", n)
	}
}

func TestLogSubscriber(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	b := NewBus()
	b.SubscribeAll(LogSubscriber(logger))

	b.Publish(Event{Topic: SessionFinished, SessionID: "s9", Payload: FinishedPayload{NumQuestions: 3, AverageScore: 6.33}})

	out := buf.String()
	for _, want := range []string{`"topic":"session_finished"`, `"session_id":"s9"`, `"average_score":6.33`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}
