// Package ai normalizes LLM output into structured evaluation records and
// resolves provider tags to concrete adapters.
//
// Model output has no schema guarantee: sections go missing, bullets change
// markers, labels repeat inside lists, and prose leaks around the structure.
// ParseEvaluation is therefore total: it never fails, it degrades.
package ai

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/resumehq/resume-evaluator/internal/domain"
)

type section int

const (
	sectionNone section = iota
	sectionScore
	sectionStrengths
	sectionWeaknesses
	sectionComments
)

// labelRe matches a candidate section header line: optional markdown
// decoration, one of the four labels, an optional colon/dash separator, and
// whatever inline content follows.
var labelRe = regexp.MustCompile(`(?i)^\s*(?:#+\s*|\*\*\s*)?(score|strengths|weaknesses|comments?)\b\s*(?:\*\*)?\s*([:\-])?\s*(.*)$`)

// scoreRe captures the first floating-point number after a score marker,
// tolerating "Score: 7.5", "Score - 7.5/10", and "Score: (7.5 out of 10)".
var scoreRe = regexp.MustCompile(`(?i)score\s*[:\-]?[\s*]*\(?\s*([0-9]+(?:\.[0-9]+)?)`)

// commentsMarkerRe locates the literal Comments marker for the last-resort
// "everything after the marker" fallback.
var commentsMarkerRe = regexp.MustCompile(`(?i)comments\s*:?`)

// bulletEchoRe matches list entries that are really an echoed header, e.g.
// the model repeating "Score: 8/10" inside its strengths list.
var bulletEchoRe = regexp.MustCompile(`(?i)^(?:score\s*[:\-]?\s*[0-9./ ()a-z]*|strengths\s*:?|weaknesses\s*:?|comments?\s*:?)$`)

// ParseEvaluation extracts a structured evaluation record from free-form
// model text. It runs a line scanner as a small state machine: a recognized
// label opens a section, the next recognized label closes it, so per-section
// length never matters. Any field that cannot be extracted is left empty;
// callers detect total failure via Evaluation.Empty.
func ParseEvaluation(raw string) domain.Evaluation {
	rec := domain.Evaluation{Strengths: []string{}, Weaknesses: []string{}}

	captured := map[section][]string{}
	current := sectionNone
	for _, line := range strings.Split(raw, "\n") {
		if sec, inline, ok := matchHeader(line); ok {
			current = sec
			if inline != "" {
				captured[sec] = append(captured[sec], inline)
			}
			continue
		}
		if current != sectionNone {
			captured[current] = append(captured[current], line)
		}
	}

	rec.Strengths = cleanList(captured[sectionStrengths])
	rec.Weaknesses = cleanList(captured[sectionWeaknesses])
	rec.Comments = extractComments(captured[sectionComments], raw)
	rec.Score = extractScore(raw)
	return rec
}

// matchHeader reports whether line opens a section. A label only counts as a
// header when it is followed by a colon/dash separator or stands alone on the
// line; prose that merely starts with a label word ("Comments were sparse")
// is content, not structure.
func matchHeader(line string) (section, string, bool) {
	m := labelRe.FindStringSubmatch(line)
	if m == nil {
		return sectionNone, "", false
	}
	inline := strings.TrimSpace(strings.TrimSuffix(m[3], "**"))
	if m[2] == "" && inline != "" {
		return sectionNone, "", false
	}
	switch strings.ToLower(m[1]) {
	case "score":
		return sectionScore, inline, true
	case "strengths":
		return sectionStrengths, inline, true
	case "weaknesses":
		return sectionWeaknesses, inline, true
	default:
		return sectionComments, inline, true
	}
}

// cleanList strips bullet markers and discards noise: blank lines, fragments
// shorter than two characters, and echoed section headers.
func cleanList(lines []string) []string {
	out := []string{}
	for _, line := range lines {
		s := strings.TrimSpace(line)
		s = strings.TrimLeft(s, "-*")
		s = strings.TrimSpace(s)
		if len(s) <= 1 {
			continue
		}
		if bulletEchoRe.MatchString(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// extractComments prefers what the state machine captured (covers both the
// inline "Comments: text" form and block form). When that is empty it falls
// back to everything after the literal Comments marker, stripped of leading
// punctuation and markup.
func extractComments(captured []string, raw string) string {
	parts := make([]string, 0, len(captured))
	for _, line := range captured {
		if s := strings.TrimSpace(line); s != "" {
			parts = append(parts, s)
		}
	}
	if joined := strings.TrimSpace(strings.Join(parts, "\n")); joined != "" {
		return joined
	}

	loc := commentsMarkerRe.FindStringIndex(raw)
	if loc == nil {
		return ""
	}
	rest := raw[loc[1]:]
	rest = strings.TrimLeft(rest, ":*-# \t\r\n")
	return strings.TrimSpace(rest)
}

// extractScore returns the first positive score-like number in the text, or
// 0 when none is found. Non-positive captures are treated as absent.
func extractScore(raw string) float64 {
	m := scoreRe.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}
