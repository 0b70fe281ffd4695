package model

import (
	"context"
	"math"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a regular learner account.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin may manage shared exams.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
//
// The original platform identified the admin by matching the display name
// or the local part of the email against a hard-coded value. That heuristic
// is replaced here by an explicit role attribute.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType represents the shape of an exam question.
type QuestionType string

const (
	TypeMCQ         QuestionType = "mcq"
	TypeMatching    QuestionType = "matching"
	TypeShortAnswer QuestionType = "short-answer"
	TypeCode        QuestionType = "code"
	TypeExtended    QuestionType = "extended"
)

// ValidQuestionType reports whether t is a known question type.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case TypeMCQ, TypeMatching, TypeShortAnswer, TypeCode, TypeExtended:
		return true
	}
	return false
}

// CodeLanguage is the sub-tag for code questions.
type CodeLanguage string

const (
	LangPython  CodeLanguage = "python"
	LangSQL     CodeLanguage = "sql"
	LangDiagram CodeLanguage = "diagram"
)

// ValidCodeLanguage reports whether l is a known code language.
func ValidCodeLanguage(l CodeLanguage) bool {
	switch l {
	case LangPython, LangSQL, LangDiagram:
		return true
	}
	return false
}

// MatchingPair is one left/right pair of a matching question.
type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Question is one exam item. Type-conditional fields are omitted from
// JSON when empty; CodeLanguage is present iff Type is TypeCode.
type Question struct {
	ID              string         `json:"id"`
	Type            QuestionType   `json:"type"`
	QuestionNumber  int            `json:"questionNumber"`
	Marks           int            `json:"marks"`
	Modules         []string       `json:"modules"`
	Prompt          string         `json:"prompt"`
	Options         []string       `json:"options,omitempty"`
	MatchingPairs   []MatchingPair `json:"matchingPairs,omitempty"`
	CodeLanguage    CodeLanguage   `json:"codeLanguage,omitempty"`
	CodeStarter     string         `json:"codeStarter,omitempty"`
	ExpectedOutput  string         `json:"expectedOutput,omitempty"`
	SampleAnswer    string         `json:"sampleAnswer,omitempty"`
	MarkingCriteria string         `json:"markingCriteria,omitempty"`
	SQLSampleData   string         `json:"sqlSampleData,omitempty"`
}

// IsDiagram reports whether the question is marked by learner
// self-assessment rather than by the oracle.
func (q Question) IsDiagram() bool {
	return q.CodeLanguage == LangDiagram
}

// Exam is a generated set of questions with metadata.
type Exam struct {
	ExamTitle    string            `json:"examTitle"`
	TotalMarks   int               `json:"totalMarks"`
	TimeAllowed  string            `json:"timeAllowed"`
	Instructions []string          `json:"instructions"`
	Questions    []Question        `json:"questions"`
	MarkingGuide map[string]string `json:"markingGuide,omitempty"`
}

// MarkCriterion is one entry of a per-question mark breakdown.
type MarkCriterion struct {
	Criterion    string `json:"criterion"`
	MarksAwarded int    `json:"marksAwarded"`
	MaxMarks     int    `json:"maxMarks"`
	Feedback     string `json:"feedback"`
}

// MatchResult is the per-pair outcome of a marked matching question.
type MatchResult struct {
	Left          string `json:"left"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// MarkRecord is the marking result for a single question.
// Invariant: 0 <= TotalMarks <= MaxMarks.
type MarkRecord struct {
	QuestionID         string          `json:"questionId"`
	QuestionNumber     int             `json:"questionNumber"`
	UserAnswer         string          `json:"userAnswer"`
	CorrectAnswer      string          `json:"correctAnswer,omitempty"`
	Explanation        string          `json:"explanation,omitempty"`
	ModelAnswer        string          `json:"modelAnswer,omitempty"`
	ExampleCode        string          `json:"exampleCode,omitempty"`
	DiagramDescription string          `json:"diagramDescription,omitempty"`
	MatchResults       []MatchResult   `json:"matchResults,omitempty"`
	MarkBreakdown      []MarkCriterion `json:"markBreakdown,omitempty"`
	TotalMarks         int             `json:"totalMarks"`
	MaxMarks           int             `json:"maxMarks"`
	Feedback           string          `json:"feedback"`
	SelfMarkedScore    *int            `json:"selfMarkedScore,omitempty"`
}

// MarkedAttempt is the graded result of one submission against one exam.
// It is immutable once stored, except for the additive self-marked
// score overlay merged per question later.
type MarkedAttempt struct {
	ExamID        string       `json:"examId"`
	ExamRecordID  string       `json:"examRecordId,omitempty"`
	ExamTitle     string       `json:"examTitle"`
	Questions     []Question   `json:"questions"`
	Marks         []MarkRecord `json:"marks"`
	TotalScore    int          `json:"totalScore"`
	TotalPossible int          `json:"totalPossible"`
	Percentage    int          `json:"percentage"`
	CompletedAt   time.Time    `json:"completedAt"`
}

// ProgressRecord is a resumable in-flight exam session snapshot,
// owned exclusively by one user.
type ProgressRecord struct {
	ExamID               string            `json:"examId"`
	ExamTitle            string            `json:"examTitle"`
	UserAnswers          map[string]string `json:"userAnswers"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	LastSaved            time.Time         `json:"lastSaved"`
}

// Percentage computes the rounded percentage score. A zero or negative
// possible total yields 0 rather than a division error.
func Percentage(score, possible int) int {
	if possible <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(possible)))
}

// Config holds runtime service parameters set via CLI flags.
type Config struct {
	SecureCookies bool // Set Secure flag on cookies (disable for local dev)
}
