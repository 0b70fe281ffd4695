// Package generator builds practice exams by prompting the completion
// oracle and validating what comes back. The oracle is free to return
// the wrong number of questions; the retry loop keeps correcting it
// until the count converges or the attempt limit is reached.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studyforge/nesaprep/internal/llm"
	"github.com/studyforge/nesaprep/internal/model"
)

const (
	// MinQuestions and MaxQuestions bound the requested exam size.
	MinQuestions = 15
	MaxQuestions = 30

	maxAttempts = 3

	tempSeeded   float32 = 0.3
	tempUnseeded float32 = 0.7
)

// ErrCountMismatch is returned when no generation attempt produced the
// requested question count. A mismatched exam must never be served.
var ErrCountMismatch = errors.New("generated question count did not converge")

// Oracle is the completion capability the generator depends on.
type Oracle interface {
	Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Request describes one exam to generate.
type Request struct {
	Modules       []string `json:"modules"`
	QuestionCount int      `json:"questionCount"`
	Seed          string   `json:"seed,omitempty"`
}

// Generator produces validated exams from the oracle.
type Generator struct {
	oracle Oracle
}

// New creates a Generator backed by the given oracle.
func New(oracle Oracle) *Generator {
	return &Generator{oracle: oracle}
}

// ValidateRequest checks the request bounds. The returned error is a
// *ValidationError describing every violated field.
func ValidateRequest(req Request) error {
	var fields []FieldError
	if len(req.Modules) == 0 {
		fields = append(fields, FieldError{Path: "modules", Value: req.Modules, Msg: "at least one module is required"})
	}
	if req.QuestionCount < MinQuestions || req.QuestionCount > MaxQuestions {
		fields = append(fields, FieldError{
			Path:  "questionCount",
			Value: req.QuestionCount,
			Msg:   fmt.Sprintf("must be between %d and %d", MinQuestions, MaxQuestions),
		})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// convergence carries the retry loop's observations across attempts.
type convergence struct {
	lastCount int
	candidate *model.Exam // latest valid exam with the wrong count
}

// Generate builds an exam with exactly req.QuestionCount questions.
// Attempts run strictly sequentially; each retry tells the oracle what
// count it produced and what count is required. Seeded runs use a low
// sampling temperature for reproducibility.
func (g *Generator) Generate(ctx context.Context, req Request) (*model.Exam, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	system := buildSystemPrompt()
	user := buildUserPrompt(req)
	temp := tempUnseeded
	if req.Seed != "" {
		temp = tempSeeded
	}

	var state convergence
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		}
		if attempt > 1 {
			messages = append(messages, llm.Message{
				Role:    llm.RoleSystem,
				Content: correctiveMessage(state.lastCount, req.QuestionCount),
			})
		}

		raw, err := g.oracle.Complete(ctx, messages, llm.Options{
			Format:      llm.FormatJSON,
			Temperature: temp,
		})
		if err != nil {
			return nil, fmt.Errorf("generation attempt %d: %w", attempt, err)
		}

		exam, err := decodeExam(raw)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				slog.Error("generated exam failed validation",
					"attempt", attempt, "fields", verr.Error())
			}
			return nil, err
		}

		if len(exam.Questions) == req.QuestionCount {
			slog.Info("exam generation converged",
				"attempt", attempt,
				"questions", len(exam.Questions),
				"total_marks", exam.TotalMarks,
				"seeded", req.Seed != "")
			return exam, nil
		}

		slog.Warn("generated question count mismatch",
			"attempt", attempt,
			"got", len(exam.Questions),
			"want", req.QuestionCount)
		state.lastCount = len(exam.Questions)
		state.candidate = exam
	}

	return nil, fmt.Errorf("%w: last candidate had %d questions, want %d",
		ErrCountMismatch, state.lastCount, req.QuestionCount)
}
