package marker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/studyforge/nesaprep/internal/llm"
	"github.com/studyforge/nesaprep/internal/model"
)

const (
	diagramFeedback = "Diagram questions cannot be marked automatically. " +
		"Compare your diagram against the expected answer and record your own score."
	unansweredFeedback = "Question not attempted."
	badMatchingAnswer  = "Your matching answer could not be read. " +
		"Submit it as a mapping from left-hand items to right-hand items."
)

func baseRecord(q model.Question, answer string) model.MarkRecord {
	return model.MarkRecord{
		QuestionID:     q.ID,
		QuestionNumber: q.QuestionNumber,
		UserAnswer:     answer,
		MaxMarks:       q.Marks,
	}
}

// completeJSON runs one marking call and decodes the JSON response.
func completeJSON(ctx context.Context, oracle Oracle, system, user string, out any) error {
	raw, err := oracle.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, llm.Options{Format: llm.FormatJSON, Temperature: markingTemp})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse marking response: %w (raw: %s)", err, raw)
	}
	return nil
}

// diagramStrategy never calls the oracle: the learner self-assesses
// against the expected answer and merges a score later.
type diagramStrategy struct{}

func (diagramStrategy) Mark(_ context.Context, q model.Question, answer string) (model.MarkRecord, error) {
	rec := baseRecord(q, answer)
	rec.TotalMarks = 0
	rec.DiagramDescription = q.ExpectedOutput
	rec.Feedback = diagramFeedback
	return rec, nil
}

// unansweredStrategy short-circuits empty submissions.
type unansweredStrategy struct{}

func (unansweredStrategy) Mark(_ context.Context, q model.Question, answer string) (model.MarkRecord, error) {
	rec := baseRecord(q, answer)
	rec.TotalMarks = 0
	rec.Feedback = unansweredFeedback
	return rec, nil
}

type mcqStrategy struct {
	oracle Oracle
}

type mcqResponse struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	Feedback      string `json:"feedback"`
}

func (s *mcqStrategy) Mark(ctx context.Context, q model.Question, answer string) (model.MarkRecord, error) {
	rec := baseRecord(q, answer)

	var resp mcqResponse
	if err := completeJSON(ctx, s.oracle, mcqSystemPrompt(), mcqUserPrompt(q, answer), &resp); err != nil {
		return rec, err
	}

	rec.CorrectAnswer = resp.CorrectAnswer
	rec.Explanation = resp.Explanation
	rec.Feedback = resp.Feedback
	if resp.Correct {
		rec.TotalMarks = q.Marks
	}
	return rec, nil
}

type matchingStrategy struct {
	oracle       Oracle
	allOrNothing bool
}

type matchingResponse struct {
	MatchResults []model.MatchResult `json:"matchResults"`
	Feedback     string              `json:"feedback"`
}

func (s *matchingStrategy) Mark(ctx context.Context, q model.Question, answer string) (model.MarkRecord, error) {
	rec := baseRecord(q, answer)

	// The submission is a JSON map from left items to chosen right items.
	var matches map[string]string
	if err := json.Unmarshal([]byte(answer), &matches); err != nil {
		rec.TotalMarks = 0
		rec.Feedback = badMatchingAnswer
		return rec, nil
	}

	var resp matchingResponse
	if err := completeJSON(ctx, s.oracle, matchingSystemPrompt(), matchingUserPrompt(q, matches), &resp); err != nil {
		return rec, err
	}

	correct := 0
	for _, mr := range resp.MatchResults {
		if mr.Correct {
			correct++
		}
	}
	total := len(resp.MatchResults)
	if total == 0 {
		total = len(q.MatchingPairs)
	}

	awarded := proportional(q.Marks, correct, total)
	if s.allOrNothing && correct != total {
		awarded = 0
	}

	rec.MatchResults = resp.MatchResults
	rec.MarkBreakdown = []model.MarkCriterion{{
		Criterion:    "Correct matches",
		MarksAwarded: awarded,
		MaxMarks:     q.Marks,
		Feedback:     fmt.Sprintf("%d of %d pairs matched correctly", correct, total),
	}}
	rec.TotalMarks = awarded
	rec.Feedback = resp.Feedback
	return rec, nil
}

func proportional(marks, correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(marks) * float64(correct) / float64(total)))
}

// writtenStrategy marks short-answer and extended responses.
type writtenStrategy struct {
	oracle Oracle
}

type writtenResponse struct {
	ModelAnswer   string                `json:"modelAnswer"`
	MarkBreakdown []model.MarkCriterion `json:"markBreakdown"`
	TotalMarks    int                   `json:"totalMarks"`
	Feedback      string                `json:"feedback"`
}

func (s *writtenStrategy) Mark(ctx context.Context, q model.Question, answer string) (model.MarkRecord, error) {
	rec := baseRecord(q, answer)

	var resp writtenResponse
	if err := completeJSON(ctx, s.oracle, writtenSystemPrompt(), writtenUserPrompt(q, answer), &resp); err != nil {
		return rec, err
	}

	rec.ModelAnswer = resp.ModelAnswer
	rec.MarkBreakdown = resp.MarkBreakdown
	rec.TotalMarks = resp.TotalMarks
	rec.Feedback = resp.Feedback
	return rec, nil
}

// codeStrategy marks python and sql questions.
type codeStrategy struct {
	oracle Oracle
}

type codeResponse struct {
	ExampleCode   string                `json:"exampleCode"`
	MarkBreakdown []model.MarkCriterion `json:"markBreakdown"`
	TotalMarks    int                   `json:"totalMarks"`
	Feedback      string                `json:"feedback"`
}

func (s *codeStrategy) Mark(ctx context.Context, q model.Question, answer string) (model.MarkRecord, error) {
	rec := baseRecord(q, answer)

	var resp codeResponse
	if err := completeJSON(ctx, s.oracle, codeSystemPrompt(q.CodeLanguage), codeUserPrompt(q, answer), &resp); err != nil {
		return rec, err
	}

	rec.ExampleCode = resp.ExampleCode
	rec.MarkBreakdown = resp.MarkBreakdown
	rec.TotalMarks = resp.TotalMarks
	rec.Feedback = resp.Feedback
	return rec, nil
}
