package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studyforge/nesaprep/internal/model"
)

// ErrInvalidSelfMark is returned when a self-marked score targets a
// non-diagram question.
var ErrInvalidSelfMark = errors.New("self-marked score only applies to diagram questions")

// SaveExam stores a generated exam. A nil owner marks the exam shared.
func (s *Store) SaveExam(ownerID *int64, exam model.Exam) (string, error) {
	return s.CreateRecord(KindExam, ownerID, exam.ExamTitle, exam)
}

// GetExam returns an exam and its record by id.
func (s *Store) GetExam(id string) (*model.Exam, *Record, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, nil, err
	}
	if rec.Kind != KindExam {
		return nil, nil, ErrNotFound
	}
	var exam model.Exam
	if err := json.Unmarshal(rec.Payload, &exam); err != nil {
		return nil, nil, fmt.Errorf("decode exam %s: %w", id, err)
	}
	return &exam, rec, nil
}

// ListExams returns exam records, optionally filtered by a label
// substring. Attempt and progress records never appear here.
func (s *Store) ListExams(labelContains string) ([]Record, error) {
	return s.ListRecords(RecordFilter{Kind: KindExam, LabelContains: labelContains})
}

// RenameExam updates only the exam's label.
func (s *Store) RenameExam(id, label string) error {
	rec, err := s.GetRecord(id)
	if err != nil {
		return err
	}
	if rec.Kind != KindExam {
		return ErrNotFound
	}
	return s.UpdateRecordLabel(id, label)
}

// DeleteExam removes an exam record.
func (s *Store) DeleteExam(id string) error {
	rec, err := s.GetRecord(id)
	if err != nil {
		return err
	}
	if rec.Kind != KindExam {
		return ErrNotFound
	}
	return s.DeleteRecord(id)
}

// SaveAttempt stores a marked attempt for its owner.
func (s *Store) SaveAttempt(ownerID int64, attempt model.MarkedAttempt) (string, error) {
	return s.CreateRecord(KindAttempt, &ownerID, attempt.ExamTitle, attempt)
}

// GetAttempt returns an attempt owned by ownerID. A foreign or missing
// record yields ErrNotFound either way.
func (s *Store) GetAttempt(id string, ownerID int64) (*model.MarkedAttempt, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}
	if rec.Kind != KindAttempt || rec.OwnerID == nil || *rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	var attempt model.MarkedAttempt
	if err := json.Unmarshal(rec.Payload, &attempt); err != nil {
		return nil, fmt.Errorf("decode attempt %s: %w", id, err)
	}
	return &attempt, nil
}

// ListAttempts returns the owner's marked attempts, newest first.
func (s *Store) ListAttempts(ownerID int64) ([]model.StoredAttempt, error) {
	records, err := s.ListRecords(RecordFilter{Kind: KindAttempt, OwnerID: &ownerID})
	if err != nil {
		return nil, err
	}
	attempts := make([]model.StoredAttempt, 0, len(records))
	for _, rec := range records {
		var a model.MarkedAttempt
		if err := json.Unmarshal(rec.Payload, &a); err != nil {
			return nil, fmt.Errorf("decode attempt %s: %w", rec.ID, err)
		}
		attempts = append(attempts, model.StoredAttempt{RecordID: rec.ID, OwnerID: rec.OwnerID, Attempt: a})
	}
	return attempts, nil
}

// ReplaceAttempt overwrites a stored attempt in place, used by remark.
// Any self-marked overlay in the old payload is discarded with it.
func (s *Store) ReplaceAttempt(id string, ownerID int64, attempt model.MarkedAttempt) error {
	if _, err := s.GetAttempt(id, ownerID); err != nil {
		return err
	}
	return s.UpdateRecordPayload(id, attempt)
}

// MergeSelfMarks merges learner-supplied scores into the stored
// attempt by questionId. Only diagram questions accept a self-marked
// score; every non-matching MarkRecord is left untouched.
func (s *Store) MergeSelfMarks(id string, ownerID int64, scores map[string]int) (*model.MarkedAttempt, error) {
	attempt, err := s.GetAttempt(id, ownerID)
	if err != nil {
		return nil, err
	}

	diagram := make(map[string]bool, len(attempt.Questions))
	for _, q := range attempt.Questions {
		if q.IsDiagram() {
			diagram[q.ID] = true
		}
	}

	merged := false
	for qID, score := range scores {
		if !diagram[qID] {
			return nil, fmt.Errorf("%w: question %s", ErrInvalidSelfMark, qID)
		}
		for i := range attempt.Marks {
			if attempt.Marks[i].QuestionID != qID {
				continue
			}
			if score < 0 {
				score = 0
			}
			if score > attempt.Marks[i].MaxMarks {
				score = attempt.Marks[i].MaxMarks
			}
			sc := score
			attempt.Marks[i].SelfMarkedScore = &sc
			merged = true
		}
	}
	if !merged {
		return attempt, nil
	}

	if err := s.UpdateRecordPayload(id, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// UpsertProgress saves an in-progress session, overwriting the one
// progress record matching (owner, examId) or creating it. Last write
// wins; autosave retries are idempotent.
func (s *Store) UpsertProgress(ownerID int64, p model.ProgressRecord) (string, error) {
	p.LastSaved = time.Now().UTC()
	existing, err := s.findProgress(ownerID, p.ExamID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if err := s.UpdateRecordPayload(existing.ID, p); err != nil {
			return "", err
		}
		if existing.Label != p.ExamTitle {
			if err := s.UpdateRecordLabel(existing.ID, p.ExamTitle); err != nil {
				return "", err
			}
		}
		return existing.ID, nil
	}
	return s.CreateRecord(KindProgress, &ownerID, p.ExamTitle, p)
}

// ListProgress returns the owner's in-progress sessions.
func (s *Store) ListProgress(ownerID int64) ([]model.ProgressRecord, error) {
	records, err := s.ListRecords(RecordFilter{Kind: KindProgress, OwnerID: &ownerID})
	if err != nil {
		return nil, err
	}
	progress := make([]model.ProgressRecord, 0, len(records))
	for _, rec := range records {
		var p model.ProgressRecord
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode progress %s: %w", rec.ID, err)
		}
		progress = append(progress, p)
	}
	return progress, nil
}

// GetProgress returns the owner's progress for one exam, or ErrNotFound.
func (s *Store) GetProgress(ownerID int64, examID string) (*model.ProgressRecord, error) {
	rec, err := s.findProgress(ownerID, examID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	var p model.ProgressRecord
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", rec.ID, err)
	}
	return &p, nil
}

// DeleteProgressForExam retires the progress record whose embedded
// examId matches. Deleting progress that does not exist is a no-op.
func (s *Store) DeleteProgressForExam(ownerID int64, examID string) error {
	rec, err := s.findProgress(ownerID, examID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	return s.DeleteRecord(rec.ID)
}

func (s *Store) findProgress(ownerID int64, examID string) (*Record, error) {
	records, err := s.ListRecords(RecordFilter{Kind: KindProgress, OwnerID: &ownerID})
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		var p model.ProgressRecord
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode progress %s: %w", rec.ID, err)
		}
		if p.ExamID == examID {
			return &records[i], nil
		}
	}
	return nil, nil
}
