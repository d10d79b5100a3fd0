package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return dir
}

func values(in []Input) []any {
	out := make([]any, len(in))
	for i, r := range in {
		out[i] = r.Value
	}

	return out
}

func TestLoad_PreventExportDirectory(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "examples", "prevent", "export"), nil, Options{})
	require.NoError(t, err)

	want := []any{
		map[string]any{
			"SubjectUID": "P-0001", "Sex": "F", "AgeAtOnset": "54", "ElEscorial": "yes", "Site": "Boston",
			"Visit": "1", "Date": "2023-01-10", "ALSFRS": "44", "Site_visits": "Boston",
		},
		map[string]any{
			"SubjectUID": "P-0001", "Sex": "F", "AgeAtOnset": "54", "ElEscorial": "yes", "Site": "Boston",
			"Visit": "2", "Date": "2023-04-12", "ALSFRS": "41", "Site_visits": "Worcester",
		},
		map[string]any{
			"SubjectUID": "P-0002", "Sex": "M", "AgeAtOnset": nil, "ElEscorial": "no", "Site": "Chicago",
			"Visit": nil, "Date": nil, "ALSFRS": nil, "Site_visits": nil,
		},
	}
	assert.Equal(t, want, values(got))

	for i, in := range got {
		assert.Equal(t, i, in.Index)
		assert.Equal(t, []string{
			"SubjectUID", "Sex", "AgeAtOnset", "ElEscorial", "Site", "Visit", "Date", "ALSFRS", "Site_visits",
		}, in.Keys)
	}
}

func TestLoadDir_OuterJoinOnSharedKeys(t *testing.T) {
	dir := writeDir(t, map[string]string{
		"a_visits.csv": "SubjectUID,Visit,Date,Score\nP-1,1,d1,10\nP-1,2,d2,11\nP-2,1,d3,12\n",
		"b_vitals.csv": "SubjectUID,Visit,Date,Weight\nP-1,2,d2,70\nP-3,1,d9,80\n",
		"notes.txt":    "ignored",
	})

	got, err := LoadDir(dir, Options{})
	require.NoError(t, err)

	want := []any{
		map[string]any{"SubjectUID": "P-1", "Visit": "1", "Date": "d1", "Score": "10", "Weight": nil},
		map[string]any{"SubjectUID": "P-1", "Visit": "2", "Date": "d2", "Score": "11", "Weight": "70"},
		map[string]any{"SubjectUID": "P-2", "Visit": "1", "Date": "d3", "Score": "12", "Weight": nil},
		map[string]any{"SubjectUID": "P-3", "Visit": "1", "Date": "d9", "Score": nil, "Weight": "80"},
	}
	assert.Equal(t, want, values(got))
}

func TestLoadDir_CustomKeysAndSkippedFiles(t *testing.T) {
	dir := writeDir(t, map[string]string{
		"labs.csv":  "pid,Value\nx,1\nx,2\n",
		"other.csv": "Code\nq\n",
		"sites.csv": "pid,Value\nx,Boston\n",
	})

	core, logs := observer.New(zap.DebugLevel)

	got, err := LoadDir(dir, Options{MergeKeys: []string{"pid"}, Logger: zap.New(core)})
	require.NoError(t, err)

	assert.Equal(t, []any{
		map[string]any{"pid": "x", "Value": "1", "Value_sites": "Boston"},
		map[string]any{"pid": "x", "Value": "2", "Value_sites": "Boston"},
	}, values(got))

	skipped := logs.FilterMessage("csv file not merged: no shared key columns").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "other", skipped[0].ContextMap()["file"])
	assert.Equal(t, 1, logs.FilterMessage("csv directory merged").Len())
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(t.TempDir(), Options{})

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorContains(t, err, "no CSV files found")

	dir := writeDir(t, map[string]string{"bad.csv": "a,b\n1,2,3\n"})
	_, err = Load(dir, nil, Options{})
	require.ErrorAs(t, err, &le)
	assert.Equal(t, filepath.Join(dir, "bad.csv"), le.Path)
}
