package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"subjectId", "subjectid"},
		{"subject_id", "subjectid"},
		{"Subject-ID", "subjectid"},
		{"SUBJECT_ID", "subjectid"},
		{"dataUseCode", "datausecode"},
		{"studyURL", "studyurl"},
		{"specimen.type", "specimentype"},
		{"", ""},
		{"a", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeIdent(tt.input))
		})
	}
}

func TestTokenizeIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"OrderID", []string{"order", "id"}},
		{"studyURL", []string{"study", "url"}},
		{"XMLParser", []string{"xml", "parser"}},
		{"getHTTPResponse", []string{"get", "http", "response"}},
		{"data_use-code", []string{"data", "use", "code"}},
		{"ALLCAPS", []string{"allcaps"}},
		{"ABcD", []string{"a", "bc", "d"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, TokenizeIdent(tt.input))
		})
	}
}
