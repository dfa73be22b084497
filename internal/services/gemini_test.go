package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawReportJSON = `{
	"items": [
		{
			"id": "item-1",
			"question_number": "1",
			"question_text": "Define osmosis.",
			"model_answer": "Movement of water across a membrane.",
			"student_answer": "Water moving through a membrane.",
			"score": 4,
			"max_score": 5,
			"feedback": "Missing the concentration gradient."
		}
	],
	"total_score": 4,
	"max_possible_score": 5,
	"summary": "One question answered.",
	"improvement_areas": ["Mention the gradient"]
}`

func TestParseGradingReport(t *testing.T) {
	report, err := parseGradingReport(rawReportJSON)
	require.NoError(t, err)

	require.Len(t, report.Items, 1)
	assert.Equal(t, "1", report.Items[0].QuestionNumber)
	assert.Equal(t, 4.0, report.Items[0].Score)
	assert.Equal(t, 4.0, report.TotalScore)
	assert.Equal(t, 5.0, report.MaxPossibleScore)
	assert.Equal(t, []string{"Mention the gradient"}, report.ImprovementAreas)
}

func TestParseGradingReportMarkdownFenced(t *testing.T) {
	wrapped := "Here is the evaluation:\n```json\n" + rawReportJSON + "\n```\n"

	report, err := parseGradingReport(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 4.0, report.TotalScore)
	require.Len(t, report.Items, 1)
}

func TestParseGradingReportInvalid(t *testing.T) {
	_, err := parseGradingReport("the model refused to answer")
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain object",
			input:    `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "fenced object",
			input:    "```json\n{\"a\": 1}\n```",
			expected: "{\"a\": 1}",
		},
		{
			name:     "object with prose around it",
			input:    "Sure! Here you go: {\"a\": 1} Hope that helps.",
			expected: "{\"a\": 1}",
		},
		{
			name:     "array",
			input:    "```\n[1, 2, 3]\n```",
			expected: "[1, 2, 3]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON(tt.input)
			assert.Equal(t, tt.expected, strings.TrimSpace(got))
		})
	}
}
