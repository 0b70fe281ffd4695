package model

import "testing"

func TestPercentage(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		possible int
		want     int
	}{
		{"zero possible", 5, 0, 0},
		{"negative possible", 5, -1, 0},
		{"zero score", 0, 100, 0},
		{"full marks", 100, 100, 100},
		{"exact half", 50, 100, 50},
		{"rounds up", 2, 3, 67},
		{"rounds down", 1, 3, 33},
		{"rounds half up", 1, 8, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentage(tt.score, tt.possible)
			if got != tt.want {
				t.Errorf("Percentage(%d, %d) = %d, want %d", tt.score, tt.possible, got, tt.want)
			}
		})
	}
}

func TestValidQuestionType(t *testing.T) {
	for _, qt := range []QuestionType{TypeMCQ, TypeMatching, TypeShortAnswer, TypeCode, TypeExtended} {
		if !ValidQuestionType(qt) {
			t.Errorf("expected %q to be valid", qt)
		}
	}
	if ValidQuestionType("essay") {
		t.Error("expected 'essay' to be invalid")
	}
}

func TestValidCodeLanguage(t *testing.T) {
	for _, l := range []CodeLanguage{LangPython, LangSQL, LangDiagram} {
		if !ValidCodeLanguage(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	if ValidCodeLanguage("javascript") {
		t.Error("expected 'javascript' to be invalid")
	}
}

func TestIsAdmin(t *testing.T) {
	var nilUser *User
	if nilUser.IsAdmin() {
		t.Error("nil user should not be admin")
	}
	if (&User{Role: UserRoleStudent}).IsAdmin() {
		t.Error("student should not be admin")
	}
	if !(&User{Role: UserRoleAdmin}).IsAdmin() {
		t.Error("admin role should be admin")
	}
}
