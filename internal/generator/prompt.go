package generator

import (
	"fmt"
	"strings"
)

// buildSystemPrompt encodes the syllabus expectations, the required
// question-type distribution and the exact JSON shape the oracle must
// return. It is identical for every request.
func buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an experienced NESA exam writer for the NSW HSC Software Engineering course. ")
	sb.WriteString("You produce complete standardized practice papers in the official exam style.\n\n")

	sb.WriteString("QUESTION TYPE DISTRIBUTION (scale proportionally to the requested count):\n")
	sb.WriteString("- about 8 multiple-choice questions (type \"mcq\", 1 mark each)\n")
	sb.WriteString("- about 2 matching questions (type \"matching\", 2-4 marks each)\n")
	sb.WriteString("- about 6 short-answer questions (type \"short-answer\", 2-5 marks each)\n")
	sb.WriteString("- about 5 code or diagram questions (type \"code\", codeLanguage one of \"python\", \"sql\", \"diagram\")\n")
	sb.WriteString("- 1 extended-response question (type \"extended\", 8-12 marks)\n\n")

	sb.WriteString("REQUIREMENTS:\n")
	sb.WriteString("- Every question needs: id, type, marks (positive integer), modules (syllabus module names), prompt.\n")
	sb.WriteString("- mcq questions need an \"options\" array of four labelled choices and a sampleAnswer naming the correct label.\n")
	sb.WriteString("- matching questions need a \"matchingPairs\" array of {left, right} objects.\n")
	sb.WriteString("- code questions need codeLanguage, a codeStarter or sqlSampleData where appropriate, an expectedOutput, and markingCriteria.\n")
	sb.WriteString("- codeLanguage must be a single string, never an array, and only ever \"python\", \"sql\" or \"diagram\". ")
	sb.WriteString("Never put codeLanguage on any other question type.\n")
	sb.WriteString("- short-answer and extended questions need a sampleAnswer and markingCriteria.\n")
	sb.WriteString("- Cover only the requested syllabus modules, spread questions evenly across them.\n\n")

	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"examTitle": "...", "timeAllowed": "...", "instructions": ["..."], ` +
		`"questions": [{"id": "q1", "type": "mcq", "marks": 1, "modules": ["..."], "prompt": "...", ` +
		`"options": ["A. ...", "B. ...", "C. ...", "D. ..."], "sampleAnswer": "A"}], ` +
		`"markingGuide": {"q1": "A"}}`)
	sb.WriteString("\n")

	return sb.String()
}

// buildUserPrompt names the selected modules, the exact question count
// and the seed instruction for reproducible papers.
func buildUserPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate a practice exam with exactly %d questions.\n", req.QuestionCount))
	sb.WriteString("Syllabus modules to cover: " + strings.Join(req.Modules, ", ") + "\n")
	if req.Seed != "" {
		sb.WriteString(fmt.Sprintf(
			"Use the seed %q: derive question selection and wording deterministically from it so the same seed reproduces the same paper.\n",
			req.Seed))
	}
	return sb.String()
}

// correctiveMessage tells the oracle what count it produced last time
// and what count is required; sent as an extra system message on retry.
func correctiveMessage(got, want int) string {
	return fmt.Sprintf(
		"Your previous response contained %d questions but exactly %d are required. "+
			"Regenerate the complete exam with exactly %d questions. Do not omit or merge questions.",
		got, want, want)
}
