package models

import (
	"encoding/json"
	"time"
)

// FieldChange holds the before/after values of one tracked field.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// ChangeLogEntry records the non-identity field deltas of one update,
// written in the same transaction as the record itself.
type ChangeLogEntry struct {
	ID          int64                  `json:"id" db:"id"`
	Fingerprint string                 `json:"fingerprint" db:"fingerprint"`
	Changes     map[string]FieldChange `json:"changes" db:"changes"`
	ChangeCount int                    `json:"change_count" db:"change_count"`
	ChangedAt   time.Time              `json:"changed_at" db:"changed_at"`
}

// ChangesJSON renders the diff for storage in a JSONB column.
func (e *ChangeLogEntry) ChangesJSON() json.RawMessage {
	data, _ := json.Marshal(e.Changes)
	return data
}
