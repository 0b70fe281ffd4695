package integrity

import "testing"

func TestNotGenuine(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{"empty", "", false},
		{"short gibberish ignored", "asdfasdf", false},
		{"plain sentence", "A stack is a last-in first-out data structure.", false},
		{"long run of one char", "aaaaaaaaaa is my answer", true},
		{"seven repeats pass", "mississippi has aaaaaaa in it somewhere", false},
		{"repeated keyboard mash", "asdfjkl;asdfjkl;asdfjkl;", true},
		{"single mash occurrence passes", "the qwerty layout is standard on keyboards", false},
		{"two distinct mash patterns", "asdf and then qwer again", true},
		{"unrecognizable tokens", "xk qz bv wn pf gh tk", true},
		{"few tokens skip ratio rule", "xk qz bv", false},
		{"mostly real words", "the cat sat on the mat quietly today", false},
		{"numeric answer", "42 16 108 253 9000 777 31", true},
		{"genuine technical answer", "SELECT name FROM students WHERE mark > 50 ORDER BY name;", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NotGenuine(tt.answer)
			if got != tt.want {
				t.Errorf("NotGenuine(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestRecognizableToken(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"cat", true},
		{"at", false},
		{"xyz", false},
		{"aei", false},
		{"data", true},
		{"sql", false},
	}
	for _, tt := range tests {
		if got := recognizableToken(tt.tok); got != tt.want {
			t.Errorf("recognizableToken(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}
