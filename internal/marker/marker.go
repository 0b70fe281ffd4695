// Package marker grades answered exams. Each question shape has its own
// marking strategy; the orchestrator dispatches per question, applies
// the integrity override to free-text answers, and aggregates totals.
// Marking is all-or-nothing: a failure on any question aborts the whole
// attempt so no partially-graded result is ever produced.
package marker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/nesaprep/internal/integrity"
	"github.com/studyforge/nesaprep/internal/llm"
	"github.com/studyforge/nesaprep/internal/model"
)

const markingTemp float32 = 0.2

// Oracle is the completion capability the marker depends on.
type Oracle interface {
	Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Strategy marks one question variant. Implementations only ever see
// answers of their own shape.
type Strategy interface {
	Mark(ctx context.Context, q model.Question, answer string) (model.MarkRecord, error)
}

// Request is one marking submission.
type Request struct {
	ExamTitle    string            `json:"examTitle"`
	ExamRecordID string            `json:"examRecordId,omitempty"`
	Questions    []model.Question  `json:"questions"`
	UserAnswers  map[string]string `json:"userAnswers"`
}

// Marker grades submissions against the oracle.
type Marker struct {
	oracle Oracle

	// AllOrNothingMatching switches matching questions from
	// proportional partial credit to full-marks-or-zero.
	AllOrNothingMatching bool
}

// New creates a Marker backed by the given oracle.
func New(oracle Oracle) *Marker {
	return &Marker{oracle: oracle}
}

// Mark grades every question sequentially and returns the assembled
// attempt. Oracle calls are issued one at a time; any failure aborts
// the entire request.
func (m *Marker) Mark(ctx context.Context, req Request) (*model.MarkedAttempt, error) {
	attempt := &model.MarkedAttempt{
		ExamID:       uuid.NewString(),
		ExamRecordID: req.ExamRecordID,
		ExamTitle:    req.ExamTitle,
		Questions:    req.Questions,
		CompletedAt:  time.Now().UTC(),
	}

	for _, q := range req.Questions {
		answer := strings.TrimSpace(req.UserAnswers[q.ID])

		rec, err := m.strategyFor(q, answer).Mark(ctx, q, answer)
		if err != nil {
			return nil, fmt.Errorf("mark question %s: %w", q.ID, err)
		}
		clampRecord(&rec, q.Marks)

		if freeText(q.Type) && rec.TotalMarks > 0 && integrity.NotGenuine(answer) {
			slog.Warn("integrity override applied",
				"question_id", q.ID,
				"oracle_marks", rec.TotalMarks,
				"answer_length", len(answer))
			applyOverride(&rec)
		}

		attempt.Marks = append(attempt.Marks, rec)
		attempt.TotalScore += rec.TotalMarks
		attempt.TotalPossible += rec.MaxMarks
	}

	attempt.Percentage = model.Percentage(attempt.TotalScore, attempt.TotalPossible)
	return attempt, nil
}

// strategyFor dispatches on (type, codeLanguage). Diagram questions
// short-circuit before the unanswered check: they are never scored
// automatically, answered or not.
func (m *Marker) strategyFor(q model.Question, answer string) Strategy {
	if q.IsDiagram() {
		return diagramStrategy{}
	}
	if answer == "" {
		return unansweredStrategy{}
	}
	switch q.Type {
	case model.TypeMCQ:
		return &mcqStrategy{oracle: m.oracle}
	case model.TypeMatching:
		return &matchingStrategy{oracle: m.oracle, allOrNothing: m.AllOrNothingMatching}
	case model.TypeCode:
		return &codeStrategy{oracle: m.oracle}
	default:
		return &writtenStrategy{oracle: m.oracle}
	}
}

func freeText(t model.QuestionType) bool {
	return t == model.TypeShortAnswer || t == model.TypeExtended
}

// clampRecord pins the record to 0 <= totalMarks <= maxMarks.
func clampRecord(rec *model.MarkRecord, max int) {
	rec.MaxMarks = max
	if rec.TotalMarks < 0 {
		rec.TotalMarks = 0
	}
	if rec.TotalMarks > max {
		rec.TotalMarks = max
	}
}

// applyOverride zeroes an oracle-marked record after the integrity
// classifier flagged the answer. The override always wins.
func applyOverride(rec *model.MarkRecord) {
	for i := range rec.MarkBreakdown {
		rec.MarkBreakdown[i].MarksAwarded = 0
	}
	rec.TotalMarks = 0
	rec.Feedback = integrity.OverrideFeedback
}
