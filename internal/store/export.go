package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyforge/nesaprep/internal/model"
)

// ExportAllAttempts builds an export of every stored marked attempt,
// across all owners, newest first.
func (s *Store) ExportAllAttempts() (*model.AttemptExport, error) {
	records, err := s.ListRecords(RecordFilter{Kind: KindAttempt})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	export := &model.AttemptExport{
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
	}
	for _, rec := range records {
		var a model.MarkedAttempt
		if err := decodePayload(rec, &a); err != nil {
			return nil, err
		}
		export.Attempts = append(export.Attempts, model.StoredAttempt{
			RecordID: rec.ID,
			OwnerID:  rec.OwnerID,
			Attempt:  a,
		})
	}
	return export, nil
}

func decodePayload(rec Record, out any) error {
	if err := json.Unmarshal(rec.Payload, out); err != nil {
		return fmt.Errorf("decode %s record %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}
