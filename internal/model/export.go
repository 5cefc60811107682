package model

import "time"

// SessionExport is the top-level JSON structure for exported session summaries.
type SessionExport struct {
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Sessions   []Summary `json:"sessions"`
}
