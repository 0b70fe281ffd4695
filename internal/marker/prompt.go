package marker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyforge/nesaprep/internal/model"
)

// strictnessClause embeds the nonsense-detection rubric directly in the
// marking prompt. The deterministic classifier remains the safety net
// when the oracle is too lenient anyway.
const strictnessClause = `STRICTNESS:
- Award marks only for genuine, on-topic answers.
- If the answer is keyboard-mashing, random characters, repeated letters, or otherwise not a real attempt, award ZERO marks on every criterion.
- Do not award sympathy marks for length or effort alone.
`

func mcqSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are marking one multiple-choice question from an HSC Software Engineering practice exam.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Explain every option: why the correct one is right and why each other option is wrong.\n")
	sb.WriteString("- The answer is correct only when the student's chosen label equals the correct label.\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"correct": <true/false>, "correctAnswer": "<label>", "explanation": "<why each option is right or wrong>", "feedback": "<brief feedback>"}`)
	sb.WriteString("\n")
	return sb.String()
}

func mcqUserPrompt(q model.Question, answer string) string {
	var sb strings.Builder
	sb.WriteString("QUESTION: " + q.Prompt + "\n\n")
	sb.WriteString("OPTIONS:\n")
	for _, opt := range q.Options {
		sb.WriteString("- " + opt + "\n")
	}
	sb.WriteString("\nCORRECT OPTION: " + q.SampleAnswer + "\n")
	sb.WriteString("STUDENT'S CHOICE: " + answer + "\n")
	return sb.String()
}

func matchingSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are marking one matching question from an HSC Software Engineering practice exam.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Judge every pair independently against the correct pairs.\n")
	sb.WriteString("- Report one result object per left-hand item.\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"matchResults": [{"left": "<item>", "userAnswer": "<chosen>", "correctAnswer": "<expected>", "correct": <true/false>}], "feedback": "<brief feedback>"}`)
	sb.WriteString("\n")
	return sb.String()
}

func matchingUserPrompt(q model.Question, matches map[string]string) string {
	var sb strings.Builder
	sb.WriteString("QUESTION: " + q.Prompt + "\n\n")
	sb.WriteString("CORRECT PAIRS:\n")
	for _, p := range q.MatchingPairs {
		sb.WriteString(fmt.Sprintf("- %s -> %s\n", p.Left, p.Right))
	}
	sb.WriteString("\nSTUDENT'S MATCHES:\n")
	// Deterministic order keeps seeded runs reproducible.
	userJSON, _ := json.Marshal(matches)
	sb.Write(userJSON)
	sb.WriteString("\n")
	return sb.String()
}

func writtenSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are marking one written-response question from an HSC Software Engineering practice exam. ")
	sb.WriteString("Mark strictly against the marking criteria, the way an experienced HSC marker would.\n\n")
	sb.WriteString(strictnessClause)
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"modelAnswer": "<a full-mark answer>", "markBreakdown": [{"criterion": "<criterion>", "marksAwarded": <int>, "maxMarks": <int>, "feedback": "<why>"}], "totalMarks": <int>, "feedback": "<overall feedback>"}`)
	sb.WriteString("\n")
	return sb.String()
}

func writtenUserPrompt(q model.Question, answer string) string {
	var sb strings.Builder
	sb.WriteString("QUESTION: " + q.Prompt + "\n\n")
	sb.WriteString(fmt.Sprintf("MAX MARKS: %d\n\n", q.Marks))
	if q.MarkingCriteria != "" {
		sb.WriteString("MARKING CRITERIA:\n" + q.MarkingCriteria + "\n\n")
	}
	if q.SampleAnswer != "" {
		sb.WriteString("SAMPLE ANSWER (not shown to student):\n" + q.SampleAnswer + "\n\n")
	}
	sb.WriteString("STUDENT'S ANSWER:\n" + answer + "\n")
	return sb.String()
}

func codeSystemPrompt(lang model.CodeLanguage) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"You are marking one %s question from an HSC Software Engineering practice exam.\n\n", lang))
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Judge whether the code is functional and produces the expected output.\n")
	sb.WriteString("- Award ZERO marks for non-functional or gibberish code.\n\n")
	sb.WriteString(strictnessClause)
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"exampleCode": "<a full-mark solution>", "markBreakdown": [{"criterion": "<criterion>", "marksAwarded": <int>, "maxMarks": <int>, "feedback": "<why>"}], "totalMarks": <int>, "feedback": "<overall feedback>"}`)
	sb.WriteString("\n")
	return sb.String()
}

func codeUserPrompt(q model.Question, answer string) string {
	var sb strings.Builder
	sb.WriteString("QUESTION: " + q.Prompt + "\n\n")
	sb.WriteString(fmt.Sprintf("MAX MARKS: %d\n\n", q.Marks))
	if q.CodeStarter != "" {
		sb.WriteString("STARTER CODE:\n" + q.CodeStarter + "\n\n")
	}
	if q.SQLSampleData != "" {
		sb.WriteString("SAMPLE DATA:\n" + q.SQLSampleData + "\n\n")
	}
	if q.ExpectedOutput != "" {
		sb.WriteString("EXPECTED OUTPUT:\n" + q.ExpectedOutput + "\n\n")
	}
	if q.MarkingCriteria != "" {
		sb.WriteString("MARKING CRITERIA:\n" + q.MarkingCriteria + "\n\n")
	}
	sb.WriteString("STUDENT'S CODE:\n" + answer + "\n")
	return sb.String()
}
