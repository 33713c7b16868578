// Package prompt renders deterministic prompts for resume evaluation and
// contextual chat. Everything here is pure: no I/O, no clock, no randomness,
// so identical inputs always produce byte-identical output.
package prompt

import (
	"fmt"
	"strings"

	"github.com/resumehq/resume-evaluator/internal/domain"
	"github.com/resumehq/resume-evaluator/pkg/textx"
)

// evaluationTemplate demands a fixed section order with explicit formatting
// instructions. The section parser's heuristics target exactly this layout,
// so the wording must stay stable.
const evaluationTemplate = `You are an HR system. Evaluate the following resume for the job role of %q.
Provide each section with a clear heading as shown. (follow only this format for resume evaluation and carefully proofread your output for spelling, typos, or accidental random characters. Do not include any broken words or stray letters.)

Score: (#.# out of 10)

Strengths:
- (list five strengths, one per line, each starting with "- ")

Weaknesses:
- (list five weaknesses, one per line, each starting with "- ")

Comments:
(your concise summary)

Resume:
%s`

// BuildEvaluation renders the evaluation prompt. maxChars is the provider's
// resume-text character budget; non-positive means unbounded. Truncation
// happens before template rendering so the instruction block is never cut.
func BuildEvaluation(resumeText, role string, maxChars int) string {
	return fmt.Sprintf(evaluationTemplate, role, textx.Truncate(resumeText, maxChars))
}

// BuildChat renders a conversational prompt: optional grounding evaluation,
// the transcript with role-prefixed lines, the new user message, and a
// trailing "Bot:" cue that tells the model to produce only the reply.
func BuildChat(history []domain.ChatMessage, userMessage string, grounding *domain.Evaluation) string {
	msg := strings.TrimSpace(userMessage)
	transcript := renderTranscript(history)

	if grounding != nil && !grounding.Empty() {
		return fmt.Sprintf(
			"You are an AI assistant. Below is your previous evaluation of a candidate's resume:\n\"%s\"\n\n"+
				"Below is the conversation so far between the user and you:\n%s\n\n"+
				"Now, respond helpfully to the user's latest message:\n\"%s\"\n\nBot:",
			FormatEvaluation(*grounding), transcript, msg)
	}
	return fmt.Sprintf("%s\n\nUser: %s\n\nBot:", transcript, msg)
}

// FormatEvaluation renders an evaluation record as the plain-text context
// block injected into chat prompts.
func FormatEvaluation(e domain.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %.1f/10\n", e.Score)
	b.WriteString("Strengths:\n")
	for _, s := range e.Strengths {
		b.WriteString("- " + s + "\n")
	}
	b.WriteString("Weaknesses:\n")
	for _, w := range e.Weaknesses {
		b.WriteString("- " + w + "\n")
	}
	b.WriteString("Comments: " + e.Comments)
	return b.String()
}

func renderTranscript(history []domain.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		prefix := "Bot: "
		if m.Sender == domain.SenderUser {
			prefix = "User: "
		}
		lines = append(lines, prefix+m.Text)
	}
	return strings.Join(lines, "\n")
}
