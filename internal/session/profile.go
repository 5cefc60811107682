package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pavelanni/interview-coach/internal/model"
)

// Profile returns the stored profile for a user, or an empty one.
func (m *Manager) Profile(ctx context.Context, userID string) (model.Profile, error) {
	empty := model.Profile{UserID: userID, Weaknesses: map[string]int{}}
	data, err := m.store.Load(ctx, ProfilePrefix+userID)
	if err != nil {
		return empty, fmt.Errorf("%w: load profile %s: %w", model.ErrPersistence, userID, err)
	}
	if data == nil {
		return empty, nil
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return empty, fmt.Errorf("%w: decode profile %s: %w", model.ErrPersistence, userID, err)
	}
	if p.Weaknesses == nil {
		p.Weaknesses = map[string]int{}
	}
	p.UserID = userID
	return p, nil
}

// SaveProfile stores a profile. Note values that cannot be encoded as JSON are
// stored as their string form.
func (m *Manager) SaveProfile(ctx context.Context, p model.Profile) error {
	p.UpdatedAt = m.now().UTC()
	if p.Notes != nil {
		notes := make(map[string]any, len(p.Notes))
		for k, v := range p.Notes {
			notes[k] = jsonSafe(v)
		}
		p.Notes = notes
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode profile %s: %w", model.ErrPersistence, p.UserID, err)
	}
	if err := m.store.Save(ctx, ProfilePrefix+p.UserID, p.UserID, data); err != nil {
		return fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return nil
}

// MergeWeaknesses folds a finished session into the user's profile. Merges
// for the same user are serialized.
func (m *Manager) MergeWeaknesses(ctx context.Context, rec model.SessionRecord) error {
	mu := m.profileLock(rec.UserID)
	mu.Lock()
	defer mu.Unlock()

	p, err := m.Profile(ctx, rec.UserID)
	if err != nil {
		return err
	}
	for qid, n := range rec.Weaknesses {
		p.Weaknesses[qid] += n
	}
	p.SessionsCompleted++
	p.LastSessionID = rec.SessionID
	return m.SaveProfile(ctx, p)
}

func (m *Manager) profileLock(userID string) *sync.Mutex {
	m.profileMu.Lock()
	defer m.profileMu.Unlock()
	mu, ok := m.profileLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		m.profileLocks[userID] = mu
	}
	return mu
}

func jsonSafe(v any) any {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
