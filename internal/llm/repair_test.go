package llm

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidateJSON_Clean(t *testing.T) {
	v, err := ParseCandidateJSON(`{"overall_score": 72}`)
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(72), m["overall_score"])
}

func TestParseCandidateJSON_JSONFence(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"facility\": {\"name\": \"Rampur PHC\"}}\n```\nLet me know if you need more."
	v, err := ParseCandidateJSON(raw)
	require.NoError(t, err)
	m := v.(map[string]any)
	facility := m["facility"].(map[string]any)
	assert.Equal(t, "Rampur PHC", facility["name"])
}

func TestParseCandidateJSON_BareFence(t *testing.T) {
	raw := "```\n{\"overall_score\": 55}\n```"
	v, err := ParseCandidateJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, float64(55), v.(map[string]any)["overall_score"])
}

func TestParseCandidateJSON_BraceSpanInProse(t *testing.T) {
	raw := `Sure! Based on the report, {"executive_summary": "Clinic ran well.", "overall_score": 80} covers it.`
	v, err := ParseCandidateJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "Clinic ran well.", v.(map[string]any)["executive_summary"])
}

func TestParseCandidateJSON_TrailingCommas(t *testing.T) {
	raw := `{"key_findings": ["a", "b",], "overall_score": 60,}`
	v, err := ParseCandidateJSON(raw)
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, float64(60), m["overall_score"])
	assert.Len(t, m["key_findings"], 2)
}

func TestParseCandidateJSON_Garbage(t *testing.T) {
	_, err := ParseCandidateJSON("I could not find any structured data in the report, sorry.")
	var unparsable *UnparsableResponseError
	require.True(t, errors.As(err, &unparsable))
}

func TestParseCandidateJSON_PreviewCapped(t *testing.T) {
	raw := strings.Repeat("x", 5000)
	_, err := ParseCandidateJSON(raw)
	var unparsable *UnparsableResponseError
	require.True(t, errors.As(err, &unparsable))
	assert.Len(t, unparsable.Preview, previewLimit)
}

func TestParseCandidateJSON_PreviewKeepsRunesIntact(t *testing.T) {
	raw := strings.Repeat("ग", 2000) // 3-byte Devanagari letter
	_, err := ParseCandidateJSON(raw)
	var unparsable *UnparsableResponseError
	require.True(t, errors.As(err, &unparsable))
	assert.Equal(t, previewLimit, utf8.RuneCountInString(unparsable.Preview))
	assert.True(t, utf8.ValidString(unparsable.Preview))
}
