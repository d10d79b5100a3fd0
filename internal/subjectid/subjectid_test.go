package subjectid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		style   Style
		parts   [3]string
		want    string
		wantErr bool
	}{
		{name: "colon", style: StyleColon, parts: [3]string{"cpath", "ds1", "P-001"}, want: "cpath:ds1:P-001"},
		{name: "underscore", style: StyleUnderscore, parts: [3]string{"prevent", "v2", "17"}, want: "prevent_v2_17"},
		{name: "trims", style: StyleColon, parts: [3]string{" sra ", "SRP1", "S1 "}, want: "sra:SRP1:S1"},
		{name: "empty subject", style: StyleColon, parts: [3]string{"cpath", "ds1", " "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.style, tt.parts[0], tt.parts[1], tt.parts[2])
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyPart)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Deterministic(t *testing.T) {
	a, err := Format(DefaultStyle, "cpath", "ds", "1")
	require.NoError(t, err)

	b, err := Format(DefaultStyle, "cpath", "ds", "1")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFormatValues(t *testing.T) {
	got, err := FormatValues(StyleColon, "cpath", "ds1", float64(42))
	require.NoError(t, err)
	assert.Equal(t, "cpath:ds1:42", got)

	got, err = FormatValues(StyleColon, "cpath", json.Number("7"), 1.5)
	require.NoError(t, err)
	assert.Equal(t, "cpath:7:1.5", got)

	_, err = FormatValues(StyleColon, "cpath", nil, "1")
	assert.Error(t, err)

	_, err = FormatValues(StyleColon, "cpath", "ds", map[string]any{})
	assert.Error(t, err)
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleColon, s)

	s, err = ParseStyle("Underscore")
	require.NoError(t, err)
	assert.Equal(t, StyleUnderscore, s)

	_, err = ParseStyle("dash")
	assert.Error(t, err)
}
