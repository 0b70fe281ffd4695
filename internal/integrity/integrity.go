// Package integrity implements the deterministic gibberish classifier
// for free-text answers. The marking oracle is sometimes too lenient
// toward keyboard-mashing; this post-filter is the safety net that
// forces such answers to zero regardless of the oracle's score.
package integrity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// OverrideFeedback replaces the oracle's feedback when an answer is
// classified as not genuine.
const OverrideFeedback = "This answer does not appear to be a genuine attempt, " +
	"so no marks have been awarded. Write your answer in your own words and resubmit."

// minLength is the shortest answer the classifier looks at. Anything
// shorter is left to the oracle's judgment.
const minLength = 10

// maxCharRun is the consecutive-repeat threshold for a single character.
const maxCharRun = 8

// mashPatterns are keyboard-adjacency substrings typical of mashed
// input. Two or more occurrences across the answer trip the classifier.
var mashPatterns = []string{
	"asdf", "sdfg", "dfgh", "fghj", "ghjk", "hjkl",
	"qwer", "wert", "erty", "rtyu", "tyui", "yuio", "uiop",
	"zxcv", "xcvb", "cvbn", "vbnm",
	"jfkdl", "fjdk", "jkl;",
}

// minTokenRatio is the minimum share of recognizable tokens required
// once an answer has at least minTokens whitespace-delimited tokens.
const (
	minTokens     = 5
	minTokenRatio = 0.3
)

// NotGenuine classifies an answer as keyboard-mashing. It applies only
// to answers of at least minLength runes; any single rule firing is
// sufficient.
func NotGenuine(answer string) bool {
	if utf8.RuneCountInString(answer) < minLength {
		return false
	}
	return hasLongRun(answer) || hasMashPatterns(answer) || mostlyUnrecognizable(answer)
}

func hasLongRun(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= maxCharRun {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func hasMashPatterns(s string) bool {
	lower := strings.ToLower(s)
	total := 0
	for _, p := range mashPatterns {
		total += strings.Count(lower, p)
		if total >= 2 {
			return true
		}
	}
	return false
}

func mostlyUnrecognizable(s string) bool {
	tokens := strings.Fields(s)
	if len(tokens) < minTokens {
		return false
	}
	recognizable := 0
	for _, tok := range tokens {
		if recognizableToken(tok) {
			recognizable++
		}
	}
	return float64(recognizable)/float64(len(tokens)) < minTokenRatio
}

// recognizableToken reports whether a token plausibly is a word: at
// least three runes, containing both a vowel and a consonant.
func recognizableToken(tok string) bool {
	if utf8.RuneCountInString(tok) < 3 {
		return false
	}
	var vowel, consonant bool
	for _, r := range strings.ToLower(tok) {
		if !unicode.IsLetter(r) {
			continue
		}
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowel = true
		default:
			consonant = true
		}
	}
	return vowel && consonant
}
