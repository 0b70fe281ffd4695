package model

import "time"

// AttemptExport is the top-level JSON structure for marked-attempt export.
type AttemptExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Attempts   []StoredAttempt `json:"attempts"`
}

// StoredAttempt pairs a marked attempt with its storage identity.
type StoredAttempt struct {
	RecordID string        `json:"record_id"`
	OwnerID  *int64        `json:"owner_id,omitempty"`
	Attempt  MarkedAttempt `json:"attempt"`
}
