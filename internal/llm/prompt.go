package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxInputChars bounds how much report text is embedded in a prompt.
// Long reports front-load the facility header and visit details, so keeping
// the head loses the least.
const DefaultMaxInputChars = 15000

const promptRole = "You are a government health data analyst for Maternal Health Clinics in India."

// BuildPrompt assembles the extraction prompt for one field report. The
// returned bool reports whether the input text was truncated to maxChars.
func BuildPrompt(rawText string, profile *Profile, maxChars int) (string, bool) {
	if profile == nil {
		profile = FullProfile()
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	text, truncated := truncateRunes(rawText, maxChars)

	var b strings.Builder
	b.WriteString(promptRole)
	b.WriteString(" Analyze this field report from an ASHA/ANM worker and extract structured data.\n\n")
	b.WriteString("REPORT TEXT:\n")
	b.WriteString(text)
	b.WriteString("\n\nExtract the following as JSON:\n")
	b.WriteString(profile.Skeleton())
	b.WriteString("\n\nReturn ONLY valid JSON, no other text.")
	return b.String(), truncated
}

// truncateRunes cuts s to at most n runes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}

// SystemPrompt is the instruction sent on the system turn for backends that
// support one.
func SystemPrompt() string {
	return fmt.Sprintf("%s You respond with valid JSON only.", promptRole)
}
