// Package session keeps in-memory session records and persists them through a
// key-value store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pavelanni/interview-coach/internal/model"
)

// ProfilePrefix is prepended to a user id to form its profile key.
const ProfilePrefix = "profile_"

// Store is the durable key-value backend. Load returns nil data for a missing key.
type Store interface {
	Save(ctx context.Context, sessionID, userID string, data []byte) error
	Load(ctx context.Context, sessionID string) ([]byte, error)
}

type entry struct {
	mu  sync.Mutex
	rec model.SessionRecord
}

// Manager owns the in-memory session records. Each record has its own lock;
// the map lock is held only for lookups and inserts.
type Manager struct {
	store Store
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry

	loads singleflight.Group

	profileMu    sync.Mutex
	profileLocks map[string]*sync.Mutex
}

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:        store,
		now:          time.Now,
		sessions:     make(map[string]*entry),
		profileLocks: make(map[string]*sync.Mutex),
	}
}

func (m *Manager) get(id string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	return e, ok
}

// Create allocates a fresh session id with an empty record.
func (m *Manager) Create(userID string) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &entry{rec: m.newRecord(id, userID, "")}
	m.mu.Unlock()
	return id
}

func (m *Manager) newRecord(id, userID string, domain model.Domain) model.SessionRecord {
	return model.SessionRecord{
		SessionID:  id,
		UserID:     userID,
		Domain:     domain,
		CreatedAt:  m.now().UTC(),
		History:    []model.HistoryEntry{},
		Weaknesses: map[string]int{},
	}
}

// Start ensures a record exists for id with the given user and domain.
// An existing record keeps its history.
func (m *Manager) Start(id, userID string, domain model.Domain) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.sessions[id] = &entry{rec: m.newRecord(id, userID, domain)}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	e.mu.Lock()
	e.rec.UserID = userID
	e.rec.Domain = domain
	e.mu.Unlock()
}

// Record appends an evaluated answer to the session history.
func (m *Manager) Record(id string, q model.Question, ev model.Evaluation) error {
	e, ok := m.get(id)
	if !ok {
		return fmt.Errorf("record %s: %w", id, model.ErrSessionNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rec.History = append(e.rec.History, model.HistoryEntry{
		Time: m.now().UTC(),
		Question: model.HistoryQuestion{
			ID:              q.ID,
			Text:            q.Text,
			ReferenceAnswer: q.ReferenceAnswer,
		},
		Evaluation: ev,
	})
	if ev.Score < model.WeaknessThreshold {
		if e.rec.Weaknesses == nil {
			e.rec.Weaknesses = map[string]int{}
		}
		e.rec.Weaknesses[q.ID]++
	}
	return nil
}

// Snapshot returns a copy of the in-memory record.
func (m *Manager) Snapshot(id string) (model.SessionRecord, bool) {
	e, ok := m.get(id)
	if !ok {
		return model.SessionRecord{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), true
}

// Persist writes the in-memory record to the store. Unknown ids are a no-op.
// Ids in the profile keyspace are rejected.
func (m *Manager) Persist(ctx context.Context, id string) error {
	if isProfileKey(id) {
		return fmt.Errorf("persist %s: %w", id, model.ErrSessionNotFound)
	}
	rec, ok := m.Snapshot(id)
	if !ok {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", model.ErrPersistence, id, err)
	}
	if err := m.store.Save(ctx, id, rec.UserID, data); err != nil {
		return fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return nil
}

// Load returns the record for id, reading it from the store when it is not in
// memory. Store failures and profile keys are reported as not found.
func (m *Manager) Load(ctx context.Context, id string) (model.SessionRecord, bool) {
	if isProfileKey(id) {
		return model.SessionRecord{}, false
	}
	if rec, ok := m.Snapshot(id); ok {
		return rec, true
	}

	// The read is shared by concurrent callers, so one caller's cancellation
	// must not fail the others.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := m.loads.Do(id, func() (any, error) {
		data, err := m.store.Load(loadCtx, id)
		if err != nil || data == nil {
			return nil, err
		}
		var rec model.SessionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		if rec.Weaknesses == nil {
			rec.Weaknesses = map[string]int{}
		}
		m.mu.Lock()
		if _, ok := m.sessions[id]; !ok {
			m.sessions[id] = &entry{rec: rec}
		}
		m.mu.Unlock()
		return rec, nil
	})
	if err != nil {
		slog.Error("load session", "session_id", id, "error", fmt.Errorf("%w: %w", model.ErrPersistence, err))
		return model.SessionRecord{}, false
	}
	if v == nil {
		return model.SessionRecord{}, false
	}
	return v.(model.SessionRecord).Clone(), true
}

func isProfileKey(id string) bool {
	return strings.HasPrefix(id, ProfilePrefix)
}

// Evict drops the in-memory record for id.
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Active returns the number of records held in memory.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
