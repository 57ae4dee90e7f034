package llm

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

const previewLimit = 1000

var (
	reJSONFence     = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	reBareFence     = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseCandidateJSON recovers a JSON value from a noisy model response. The
// cascade stops at the first strategy that yields parseable JSON:
//
//  1. interior of a ```json fence
//  2. interior of any bare ``` fence
//  3. the span from the first '{' to the last '}' (greedy outermost-object
//     heuristic; not robust against prose-embedded braces)
//  4. strict parse, then a retry with trailing commas before '}' or ']'
//     removed
//
// Exhausting the cascade fails with UnparsableResponseError carrying at most
// the first 1000 characters of the raw response.
func ParseCandidateJSON(raw string) (any, error) {
	candidate := extractCandidate(raw)

	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err == nil {
		return v, nil
	}
	repaired := reTrailingComma.ReplaceAllString(candidate, "$1")
	if err := json.Unmarshal([]byte(repaired), &v); err == nil {
		return v, nil
	}
	return nil, &UnparsableResponseError{Preview: preview(raw)}
}

func extractCandidate(raw string) string {
	text := raw
	if m := reJSONFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	} else if m := reBareFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	// Narrow to the outermost object span if one exists.
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}
	return strings.TrimSpace(text)
}

// preview keeps the first previewLimit characters, never splitting a rune.
func preview(raw string) string {
	if utf8.RuneCountInString(raw) <= previewLimit {
		return raw
	}
	n := 0
	for i := range raw {
		if n == previewLimit {
			return raw[:i]
		}
		n++
	}
	return raw
}
