package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/interview-coach/internal/model"
)

// ExportRecords decodes every stored session record. Profiles are skipped.
func (s *Store) ExportRecords(ctx context.Context) ([]model.SessionRecord, error) {
	rows, err := s.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	records := make([]model.SessionRecord, 0, len(rows))
	for _, r := range rows {
		var rec model.SessionRecord
		if err := json.Unmarshal(r.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", r.SessionID, err)
		}
		if rec.SessionID == "" {
			rec.SessionID = r.SessionID
		}
		if rec.UserID == "" {
			rec.UserID = r.UserID
		}
		records = append(records, rec)
	}
	return records, nil
}
