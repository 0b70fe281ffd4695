package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyforge/nesaprep/internal/model"
)

// FieldError is one field-level validation diagnostic: the path to the
// offending value, the value itself, and what was wrong with it.
type FieldError struct {
	Path  string
	Value any
	Msg   string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Path, e.Msg, e.Value)
}

// ValidationError aggregates every field diagnostic for a malformed
// request or oracle response.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// stringList accepts either a bare JSON string or an array of strings.
// Oracle output is inconsistent about which it emits.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings")
	}
	*s = stringList(many)
	return nil
}

type rawQuestion struct {
	ID              string               `json:"id"`
	Type            string               `json:"type"`
	Marks           int                  `json:"marks"`
	Modules         []string             `json:"modules"`
	Prompt          string               `json:"prompt"`
	Options         []string             `json:"options"`
	MatchingPairs   []model.MatchingPair `json:"matchingPairs"`
	CodeLanguage    stringList           `json:"codeLanguage"`
	CodeStarter     string               `json:"codeStarter"`
	ExpectedOutput  string               `json:"expectedOutput"`
	SampleAnswer    string               `json:"sampleAnswer"`
	MarkingCriteria string               `json:"markingCriteria"`
	SQLSampleData   string               `json:"sqlSampleData"`
}

type rawExam struct {
	ExamTitle    string                `json:"examTitle"`
	TimeAllowed  string                `json:"timeAllowed"`
	Instructions []string              `json:"instructions"`
	Questions    []rawQuestion         `json:"questions"`
	MarkingGuide map[string]stringList `json:"markingGuide"`
}

// decodeExam parses an oracle response, normalizes the known quirks in
// its output, and validates the result against the exam schema.
func decodeExam(raw string) (*model.Exam, error) {
	var re rawExam
	if err := json.Unmarshal([]byte(raw), &re); err != nil {
		return nil, fmt.Errorf("parse generated exam: %w", err)
	}
	exam := normalize(&re)
	if err := validateExam(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// normalize applies the repairs the oracle's output routinely needs:
//   - codeLanguage arriving as a list collapses to its first element
//   - an unknown codeLanguage is dropped and the question downgraded
//     from code to short-answer
//   - codeLanguage is stripped whenever type is not code
//   - marking-guide answers arriving as lists collapse to one string
//   - questions are renumbered 1..N and totalMarks recomputed
func normalize(re *rawExam) *model.Exam {
	exam := &model.Exam{
		ExamTitle:    re.ExamTitle,
		TimeAllowed:  re.TimeAllowed,
		Instructions: re.Instructions,
	}

	for i, rq := range re.Questions {
		t := model.QuestionType(rq.Type)
		var lang model.CodeLanguage
		if len(rq.CodeLanguage) > 0 {
			lang = model.CodeLanguage(rq.CodeLanguage[0])
		}
		if t == model.TypeCode && !model.ValidCodeLanguage(lang) {
			lang = ""
			t = model.TypeShortAnswer
		}
		if t != model.TypeCode {
			lang = ""
		}

		exam.Questions = append(exam.Questions, model.Question{
			ID:              rq.ID,
			Type:            t,
			QuestionNumber:  i + 1,
			Marks:           rq.Marks,
			Modules:         rq.Modules,
			Prompt:          rq.Prompt,
			Options:         rq.Options,
			MatchingPairs:   rq.MatchingPairs,
			CodeLanguage:    lang,
			CodeStarter:     rq.CodeStarter,
			ExpectedOutput:  rq.ExpectedOutput,
			SampleAnswer:    rq.SampleAnswer,
			MarkingCriteria: rq.MarkingCriteria,
			SQLSampleData:   rq.SQLSampleData,
		})
		exam.TotalMarks += rq.Marks
	}

	if len(re.MarkingGuide) > 0 {
		exam.MarkingGuide = make(map[string]string, len(re.MarkingGuide))
		for k, v := range re.MarkingGuide {
			switch len(v) {
			case 0:
				exam.MarkingGuide[k] = ""
			case 1:
				exam.MarkingGuide[k] = v[0]
			default:
				exam.MarkingGuide[k] = strings.Join(v, "\n")
			}
		}
	}

	return exam
}

// validateExam enforces the exam schema after normalization. All
// violations are collected so the caller can log every diagnostic.
func validateExam(exam *model.Exam) error {
	var fields []FieldError

	if strings.TrimSpace(exam.ExamTitle) == "" {
		fields = append(fields, FieldError{Path: "examTitle", Value: exam.ExamTitle, Msg: "must not be empty"})
	}

	for i, q := range exam.Questions {
		path := fmt.Sprintf("questions[%d]", i)
		if strings.TrimSpace(q.ID) == "" {
			fields = append(fields, FieldError{Path: path + ".id", Value: q.ID, Msg: "must not be empty"})
		}
		if !model.ValidQuestionType(q.Type) {
			fields = append(fields, FieldError{Path: path + ".type", Value: q.Type, Msg: "unknown question type"})
		}
		if q.Marks < 1 {
			fields = append(fields, FieldError{Path: path + ".marks", Value: q.Marks, Msg: "must be a positive integer"})
		}
		if strings.TrimSpace(q.Prompt) == "" {
			fields = append(fields, FieldError{Path: path + ".prompt", Value: q.Prompt, Msg: "must not be empty"})
		}

		switch q.Type {
		case model.TypeMCQ:
			if len(q.Options) < 2 {
				fields = append(fields, FieldError{Path: path + ".options", Value: q.Options, Msg: "mcq needs at least two options"})
			}
		case model.TypeMatching:
			if len(q.MatchingPairs) < 2 {
				fields = append(fields, FieldError{Path: path + ".matchingPairs", Value: q.MatchingPairs, Msg: "matching needs at least two pairs"})
			}
		}

		// codeLanguage is present iff type is code.
		if q.Type == model.TypeCode && !model.ValidCodeLanguage(q.CodeLanguage) {
			fields = append(fields, FieldError{Path: path + ".codeLanguage", Value: q.CodeLanguage, Msg: "code question needs python, sql or diagram"})
		}
		if q.Type != model.TypeCode && q.CodeLanguage != "" {
			fields = append(fields, FieldError{Path: path + ".codeLanguage", Value: q.CodeLanguage, Msg: "only code questions carry a language"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
