package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/interview-coach/internal/model"
	"github.com/pavelanni/interview-coach/internal/store"
)

// memStore is a map-backed Store that can be told to fail.
type memStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	loads int
	err   error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Save(_ context.Context, id, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[id] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.data[id], nil
}

func question(id string) model.Question {
	return model.Question{ID: id, Text: "Q " + id, ReferenceAnswer: "A " + id, Domain: model.DomainJava, Difficulty: model.DifficultyEasy}
}

func TestCreateAndStart(t *testing.T) {
	m := NewManager(newMemStore())
	id := m.Create("alice")
	require.NotEmpty(t, id)
	assert.NotEqual(t, id, m.Create("alice"))

	rec, ok := m.Snapshot(id)
	require.True(t, ok)
	assert.Equal(t, "alice", rec.UserID)
	assert.Empty(t, rec.Domain)

	m.Start(id, "alice", model.DomainJava)
	require.NoError(t, m.Record(id, question("j1"), model.Evaluation{Score: 9}))

	// Starting again overwrites user and domain but keeps history.
	m.Start(id, "alice2", model.DomainPython)
	rec, _ = m.Snapshot(id)
	assert.Equal(t, "alice2", rec.UserID)
	assert.Equal(t, model.DomainPython, rec.Domain)
	assert.Len(t, rec.History, 1)
}

func TestRecordWeaknesses(t *testing.T) {
	m := NewManager(newMemStore())
	id := m.Create("bob")

	for _, score := range []int{0, 5, 6, 10, 3} {
		require.NoError(t, m.Record(id, question("j1"), model.Evaluation{Score: score}))
	}
	require.NoError(t, m.Record(id, question("j2"), model.Evaluation{Score: 7}))

	rec, _ := m.Snapshot(id)
	assert.Len(t, rec.History, 6)
	assert.Equal(t, map[string]int{"j1": 3}, rec.Weaknesses)
	assert.Equal(t, "Q j1", rec.History[0].Question.Text)
	assert.Equal(t, "A j1", rec.History[0].Question.ReferenceAnswer)
}

func TestRecordUnknownSession(t *testing.T) {
	m := NewManager(newMemStore())
	err := m.Record("missing", question("j1"), model.Evaluation{})
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewManager(newMemStore())
	id := m.Create("x")
	require.NoError(t, m.Record(id, question("j1"), model.Evaluation{Score: 1, Suggestions: []string{"a"}}))

	rec, _ := m.Snapshot(id)
	rec.History[0].Evaluation.Suggestions[0] = "changed"
	rec.Weaknesses["j1"] = 100

	again, _ := m.Snapshot(id)
	assert.Equal(t, "a", again.History[0].Evaluation.Suggestions[0])
	assert.Equal(t, 1, again.Weaknesses["j1"])
}

func TestPersistAndReload(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "coach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	m := NewManager(st)
	id := m.Create("alice")
	m.Start(id, "alice", model.DomainJava)
	require.NoError(t, m.Record(id, question("j1"), model.Evaluation{Score: 2, Feedback: "weak", Suggestions: []string{"s"}}))
	require.NoError(t, m.Record(id, question("j2"), model.Evaluation{Score: 8}))
	want, _ := m.Snapshot(id)

	require.NoError(t, m.Persist(ctx, id))
	m.Evict(id)
	assert.Equal(t, 0, m.Active())

	got, ok := m.Load(ctx, id)
	require.True(t, ok)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Domain, got.Domain)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.History, 2)
	assert.Equal(t, want.History[0].Evaluation, got.History[0].Evaluation)
	assert.Equal(t, want.Weaknesses, got.Weaknesses)

	// The reload rehydrates memory.
	assert.Equal(t, 1, m.Active())
	require.NoError(t, m.Record(id, question("j3"), model.Evaluation{Score: 9}))
}

func TestPersistUnknownIsNoop(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)
	require.NoError(t, m.Persist(context.Background(), "ghost"))
	assert.Empty(t, st.data)
}

func TestPersistFailure(t *testing.T) {
	st := newMemStore()
	st.err = errors.New("disk full")
	m := NewManager(st)
	id := m.Create("x")
	err := m.Persist(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrPersistence)
}

func TestLoadFailureIsNotFound(t *testing.T) {
	st := newMemStore()
	st.data["corrupt"] = []byte("{{{")
	m := NewManager(st)

	_, ok := m.Load(context.Background(), "corrupt")
	assert.False(t, ok)
	_, ok = m.Load(context.Background(), "missing")
	assert.False(t, ok)

	st.err = errors.New("io error")
	_, ok = m.Load(context.Background(), "anything")
	assert.False(t, ok)
}

func TestConcurrentLoadsShareOneRead(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)
	id := m.Create("x")
	require.NoError(t, m.Persist(context.Background(), id))
	m.Evict(id)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := m.Load(context.Background(), id)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	// Later loads are served from memory, so reads stay well below the caller count.
	assert.LessOrEqual(t, st.loads, 20)
	assert.Equal(t, 1, m.Active())
}

func TestConcurrentRecordsAcrossSessions(t *testing.T) {
	m := NewManager(newMemStore())
	ids := make([]string, 4)
	for i := range ids {
		ids[i] = m.Create(fmt.Sprintf("u%d", i))
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range 50 {
				_ = m.Record(id, question(fmt.Sprintf("q%d-%d", i, n%5)), model.Evaluation{Score: n % 10})
			}
		}()
	}
	wg.Wait()

	for i, id := range ids {
		rec, _ := m.Snapshot(id)
		assert.Len(t, rec.History, 50)
		for qid := range rec.Weaknesses {
			assert.Contains(t, qid, fmt.Sprintf("q%d-", i), "weakness leaked across sessions")
		}
	}
}

func TestProfile(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := context.Background()

	p, err := m.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserID)
	assert.Empty(t, p.Weaknesses)

	p.Notes = map[string]any{
		"level":  "junior",
		"ch":     make(chan int),
		"bad":    math.Inf(1),
		"nested": map[string]any{"k": 1},
	}
	require.NoError(t, m.SaveProfile(ctx, p))
	_, stored := st.data[ProfilePrefix+"alice"]
	assert.True(t, stored)

	got, err := m.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "junior", got.Notes["level"])
	assert.IsType(t, "", got.Notes["ch"])
	assert.Equal(t, "+Inf", got.Notes["bad"])
	assert.Equal(t, map[string]any{"k": float64(1)}, got.Notes["nested"])
	assert.True(t, got.UpdatedAt.Equal(m.now()))
}

func TestMergeWeaknessesAcrossSessions(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	for _, score := range []int{2, 8, 5} {
		id := m.Create("alice")
		m.Start(id, "alice", model.DomainJava)
		require.NoError(t, m.Record(id, question("j1"), model.Evaluation{Score: score}))
		rec, _ := m.Snapshot(id)
		require.NoError(t, m.MergeWeaknesses(ctx, rec))
	}

	p, err := m.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Weaknesses["j1"])
	assert.Equal(t, 3, p.SessionsCompleted)
}

func TestConcurrentMergesForOneUser(t *testing.T) {
	m := NewManager(newMemStore())
	ctx := context.Background()

	const n = 50
	recs := make([]model.SessionRecord, n)
	for i := range recs {
		id := m.Create("alice")
		m.Start(id, "alice", model.DomainJava)
		require.NoError(t, m.Record(id, question("q"), model.Evaluation{Score: 1}))
		recs[i], _ = m.Snapshot(id)
	}

	var wg sync.WaitGroup
	for _, rec := range recs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.MergeWeaknesses(ctx, rec))
		}()
	}
	wg.Wait()

	p, err := m.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, n, p.Weaknesses["q"])
	assert.Equal(t, n, p.SessionsCompleted)
}

func TestProfileKeysAreNotSessions(t *testing.T) {
	st := newMemStore()
	m := NewManager(st)
	ctx := context.Background()
	require.NoError(t, m.SaveProfile(ctx, model.Profile{UserID: "alice", Weaknesses: map[string]int{"j1": 3}}))

	_, ok := m.Load(ctx, ProfilePrefix+"alice")
	assert.False(t, ok)

	m.Start(ProfilePrefix+"bob", "bob", model.DomainJava)
	err := m.Persist(ctx, ProfilePrefix+"bob")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	p, err := m.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Weaknesses["j1"])
}

// ctxStore fails reads whose context is already done.
type ctxStore struct{ *memStore }

func (s ctxStore) Load(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.memStore.Load(ctx, id)
}

func TestLoadIgnoresCallerCancellation(t *testing.T) {
	st := newMemStore()
	writer := NewManager(st)
	id := writer.Create("alice")
	writer.Start(id, "alice", model.DomainJava)
	require.NoError(t, writer.Persist(context.Background(), id))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, ok := NewManager(ctxStore{st}).Load(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "alice", rec.UserID)
}
