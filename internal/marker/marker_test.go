package marker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/studyforge/nesaprep/internal/integrity"
	"github.com/studyforge/nesaprep/internal/llm"
	"github.com/studyforge/nesaprep/internal/model"
)

// fakeOracle replays scripted responses in call order.
type fakeOracle struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeOracle) Complete(_ context.Context, _ []llm.Message, _ llm.Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.calls > len(f.responses) {
		return "", errors.New("no scripted response")
	}
	return f.responses[f.calls-1], nil
}

func shortAnswerQ(id string, marks int) model.Question {
	return model.Question{
		ID:              id,
		Type:            model.TypeShortAnswer,
		QuestionNumber:  1,
		Marks:           marks,
		Prompt:          "Explain the concept.",
		SampleAnswer:    "A correct explanation.",
		MarkingCriteria: "Mentions the key idea.",
	}
}

func diagramQ(id string, marks int) model.Question {
	return model.Question{
		ID:             id,
		Type:           model.TypeCode,
		QuestionNumber: 1,
		Marks:          marks,
		Prompt:         "Draw a structure chart.",
		CodeLanguage:   model.LangDiagram,
		ExpectedOutput: "A chart with three modules.",
	}
}

func TestMarkDiagramAlwaysZero(t *testing.T) {
	oracle := &fakeOracle{}
	m := New(oracle)

	attempt, err := m.Mark(context.Background(), Request{
		ExamTitle: "Test",
		Questions: []model.Question{diagramQ("q1", 4)},
		UserAnswers: map[string]string{
			"q1": `[{"shape": "box", "label": "main"}]`,
		},
	})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if oracle.calls != 0 {
		t.Errorf("diagram marking should not call the oracle, got %d calls", oracle.calls)
	}
	rec := attempt.Marks[0]
	if rec.TotalMarks != 0 {
		t.Errorf("expected 0 marks, got %d", rec.TotalMarks)
	}
	if rec.MaxMarks != 4 {
		t.Errorf("expected maxMarks 4, got %d", rec.MaxMarks)
	}
	if rec.DiagramDescription != "A chart with three modules." {
		t.Errorf("expected expected-output carried into record, got %q", rec.DiagramDescription)
	}
	if !strings.Contains(rec.Feedback, "own score") {
		t.Errorf("feedback should instruct self-assessment: %q", rec.Feedback)
	}
}

func TestMarkUnanswered(t *testing.T) {
	oracle := &fakeOracle{}
	m := New(oracle)

	attempt, err := m.Mark(context.Background(), Request{
		Questions:   []model.Question{shortAnswerQ("q1", 3)},
		UserAnswers: map[string]string{"q1": "   "},
	})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if oracle.calls != 0 {
		t.Errorf("unanswered marking should not call the oracle, got %d calls", oracle.calls)
	}
	rec := attempt.Marks[0]
	if rec.TotalMarks != 0 || rec.Feedback != unansweredFeedback {
		t.Errorf("unexpected record: marks=%d feedback=%q", rec.TotalMarks, rec.Feedback)
	}
}

func TestMarkMCQ(t *testing.T) {
	q := model.Question{
		ID:           "q1",
		Type:         model.TypeMCQ,
		Marks:        1,
		Prompt:       "Which is a stack operation?",
		Options:      []string{"A. push", "B. commit", "C. route", "D. join"},
		SampleAnswer: "A",
	}

	t.Run("correct", func(t *testing.T) {
		oracle := &fakeOracle{responses: []string{
			`{"correct": true, "correctAnswer": "A", "explanation": "push adds to a stack", "feedback": "Well done"}`,
		}}
		attempt, err := New(oracle).Mark(context.Background(), Request{
			Questions:   []model.Question{q},
			UserAnswers: map[string]string{"q1": "A"},
		})
		if err != nil {
			t.Fatalf("Mark: %v", err)
		}
		rec := attempt.Marks[0]
		if rec.TotalMarks != 1 {
			t.Errorf("expected full marks, got %d", rec.TotalMarks)
		}
		if rec.CorrectAnswer != "A" || rec.Explanation == "" {
			t.Errorf("expected correct answer and explanation, got %+v", rec)
		}
	})

	t.Run("incorrect", func(t *testing.T) {
		oracle := &fakeOracle{responses: []string{
			`{"correct": false, "correctAnswer": "A", "explanation": "...", "feedback": "Review stacks"}`,
		}}
		attempt, err := New(oracle).Mark(context.Background(), Request{
			Questions:   []model.Question{q},
			UserAnswers: map[string]string{"q1": "B"},
		})
		if err != nil {
			t.Fatalf("Mark: %v", err)
		}
		if attempt.Marks[0].TotalMarks != 0 {
			t.Errorf("expected 0 marks, got %d", attempt.Marks[0].TotalMarks)
		}
	})
}

func TestMarkMatching(t *testing.T) {
	q := model.Question{
		ID:     "q1",
		Type:   model.TypeMatching,
		Marks:  4,
		Prompt: "Match term to definition.",
		MatchingPairs: []model.MatchingPair{
			{Left: "stack", Right: "LIFO"},
			{Left: "queue", Right: "FIFO"},
			{Left: "tree", Right: "hierarchy"},
			{Left: "graph", Right: "network"},
		},
	}
	answer := `{"stack": "LIFO", "queue": "FIFO", "tree": "network", "graph": "hierarchy"}`
	response := `{"matchResults": [
		{"left": "stack", "userAnswer": "LIFO", "correctAnswer": "LIFO", "correct": true},
		{"left": "queue", "userAnswer": "FIFO", "correctAnswer": "FIFO", "correct": true},
		{"left": "tree", "userAnswer": "network", "correctAnswer": "hierarchy", "correct": false},
		{"left": "graph", "userAnswer": "hierarchy", "correctAnswer": "network", "correct": false}
	], "feedback": "Half right"}`

	t.Run("proportional credit", func(t *testing.T) {
		oracle := &fakeOracle{responses: []string{response}}
		attempt, err := New(oracle).Mark(context.Background(), Request{
			Questions:   []model.Question{q},
			UserAnswers: map[string]string{"q1": answer},
		})
		if err != nil {
			t.Fatalf("Mark: %v", err)
		}
		rec := attempt.Marks[0]
		if rec.TotalMarks != 2 {
			t.Errorf("expected 2 marks for 2/4 pairs, got %d", rec.TotalMarks)
		}
		if len(rec.MatchResults) != 4 {
			t.Errorf("expected 4 match results, got %d", len(rec.MatchResults))
		}
		if len(rec.MarkBreakdown) != 1 || rec.MarkBreakdown[0].MarksAwarded != 2 {
			t.Errorf("unexpected breakdown: %+v", rec.MarkBreakdown)
		}
	})

	t.Run("all or nothing policy", func(t *testing.T) {
		oracle := &fakeOracle{responses: []string{response}}
		m := New(oracle)
		m.AllOrNothingMatching = true
		attempt, err := m.Mark(context.Background(), Request{
			Questions:   []model.Question{q},
			UserAnswers: map[string]string{"q1": answer},
		})
		if err != nil {
			t.Fatalf("Mark: %v", err)
		}
		if attempt.Marks[0].TotalMarks != 0 {
			t.Errorf("expected 0 marks under all-or-nothing, got %d", attempt.Marks[0].TotalMarks)
		}
	})

	t.Run("malformed answer", func(t *testing.T) {
		oracle := &fakeOracle{}
		attempt, err := New(oracle).Mark(context.Background(), Request{
			Questions:   []model.Question{q},
			UserAnswers: map[string]string{"q1": "stack goes with LIFO"},
		})
		if err != nil {
			t.Fatalf("Mark: %v", err)
		}
		if oracle.calls != 0 {
			t.Errorf("malformed matching answer should not reach the oracle")
		}
		rec := attempt.Marks[0]
		if rec.TotalMarks != 0 || rec.Feedback != badMatchingAnswer {
			t.Errorf("unexpected record: marks=%d feedback=%q", rec.TotalMarks, rec.Feedback)
		}
	})
}

func TestMarkCode(t *testing.T) {
	q := model.Question{
		ID:            "q1",
		Type:          model.TypeCode,
		Marks:         5,
		Prompt:        "Write a query.",
		CodeLanguage:  model.LangSQL,
		SQLSampleData: "students(id, name, mark)",
	}
	oracle := &fakeOracle{responses: []string{
		`{"exampleCode": "SELECT name FROM students;", "markBreakdown": [{"criterion": "Correct clause", "marksAwarded": 4, "maxMarks": 5, "feedback": "missing ORDER BY"}], "totalMarks": 4, "feedback": "Nearly there"}`,
	}}
	attempt, err := New(oracle).Mark(context.Background(), Request{
		Questions:   []model.Question{q},
		UserAnswers: map[string]string{"q1": "SELECT name FROM students"},
	})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	rec := attempt.Marks[0]
	if rec.TotalMarks != 4 || rec.ExampleCode == "" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestMarkClampsOracleScore(t *testing.T) {
	oracle := &fakeOracle{responses: []string{
		`{"modelAnswer": "...", "markBreakdown": [], "totalMarks": 99, "feedback": "generous"}`,
	}}
	attempt, err := New(oracle).Mark(context.Background(), Request{
		Questions:   []model.Question{shortAnswerQ("q1", 3)},
		UserAnswers: map[string]string{"q1": "A proper answer about the concept here."},
	})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if attempt.Marks[0].TotalMarks != 3 {
		t.Errorf("expected clamp to maxMarks 3, got %d", attempt.Marks[0].TotalMarks)
	}
}

func TestMarkIntegrityOverride(t *testing.T) {
	// The oracle awards marks, but the classifier must force zero.
	oracle := &fakeOracle{responses: []string{
		`{"modelAnswer": "...", "markBreakdown": [{"criterion": "Key idea", "marksAwarded": 3, "maxMarks": 5, "feedback": "ok"}], "totalMarks": 3, "feedback": "Decent attempt"}`,
	}}
	attempt, err := New(oracle).Mark(context.Background(), Request{
		Questions:   []model.Question{shortAnswerQ("q1", 5)},
		UserAnswers: map[string]string{"q1": "asdfjkl;asdfjkl;asdfjkl;"},
	})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	rec := attempt.Marks[0]
	if rec.TotalMarks != 0 {
		t.Errorf("expected override to zero, got %d", rec.TotalMarks)
	}
	for _, c := range rec.MarkBreakdown {
		if c.MarksAwarded != 0 {
			t.Errorf("breakdown entry not zeroed: %+v", c)
		}
	}
	if rec.Feedback != integrity.OverrideFeedback {
		t.Errorf("expected override feedback, got %q", rec.Feedback)
	}
}

func TestMarkAggregation(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Type: model.TypeMCQ, QuestionNumber: 1, Marks: 1,
			Prompt: "Pick.", Options: []string{"A. x", "B. y"}, SampleAnswer: "A"},
		shortAnswerQ("q2", 5),
		diagramQ("q3", 4),
		shortAnswerQ("q4", 2), // left unanswered
	}
	oracle := &fakeOracle{responses: []string{
		`{"correct": true, "correctAnswer": "A", "explanation": "...", "feedback": "good"}`,
		`{"modelAnswer": "...", "markBreakdown": [], "totalMarks": 3, "feedback": "partial"}`,
	}}

	attempt, err := New(oracle).Mark(context.Background(), Request{
		ExamTitle:    "Aggregate",
		ExamRecordID: "rec-1",
		Questions:    questions,
		UserAnswers: map[string]string{
			"q1": "A",
			"q2": "A reasonable written answer about the topic.",
			"q3": `[{"shape": "box"}]`,
		},
	})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if attempt.TotalScore != 4 {
		t.Errorf("expected totalScore 4, got %d", attempt.TotalScore)
	}
	if attempt.TotalPossible != 12 {
		t.Errorf("expected totalPossible 12, got %d", attempt.TotalPossible)
	}
	if attempt.Percentage != model.Percentage(4, 12) {
		t.Errorf("percentage %d inconsistent with totals", attempt.Percentage)
	}
	if attempt.ExamID == "" {
		t.Error("expected attempt to be assigned an id")
	}
	if attempt.ExamRecordID != "rec-1" {
		t.Errorf("expected examRecordId carried through, got %q", attempt.ExamRecordID)
	}
	if len(attempt.Questions) != len(questions) {
		t.Errorf("expected question snapshot, got %d questions", len(attempt.Questions))
	}
	if oracle.calls != 2 {
		t.Errorf("expected 2 oracle calls (mcq + written), got %d", oracle.calls)
	}
}

func TestMarkOracleErrorAborts(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("upstream timeout")}
	attempt, err := New(oracle).Mark(context.Background(), Request{
		Questions:   []model.Question{shortAnswerQ("q1", 3)},
		UserAnswers: map[string]string{"q1": "a genuine attempt at an answer"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempt != nil {
		t.Error("no partial attempt should be returned on failure")
	}
}

func TestProportional(t *testing.T) {
	tests := []struct {
		marks, correct, total, want int
	}{
		{4, 4, 4, 4},
		{4, 2, 4, 2},
		{4, 3, 4, 3},
		{5, 1, 3, 2},
		{5, 0, 3, 0},
		{5, 1, 0, 0},
	}
	for _, tt := range tests {
		if got := proportional(tt.marks, tt.correct, tt.total); got != tt.want {
			t.Errorf("proportional(%d, %d, %d) = %d, want %d", tt.marks, tt.correct, tt.total, got, tt.want)
		}
	}
}
