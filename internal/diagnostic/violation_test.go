package diagnostic

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolation_JSONShape(t *testing.T) {
	v := Enum("/species", "species", "Homo sapien", []string{"Homo sapiens"})

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Len(t, m, 3)
	assert.Equal(t, "/species", m["path"])
	assert.Equal(t, "enum", m["rule"])
	assert.Equal(t, `value "Homo sapien" not in permissible set: species (did you mean "Homo sapiens"?)`, m["detail"])
}

func TestRequired_Detail(t *testing.T) {
	v := Required("/creator", "creator")
	assert.Equal(t, RuleRequired, v.Rule)
	assert.Equal(t, "missing required field: creator", v.Detail)
	assert.Equal(t, "/creator: [required] missing required field: creator", v.String())
}

func TestType_Detail(t *testing.T) {
	v := Type("/keywords", []string{"array"}, "string")
	assert.Equal(t, "expected array, got string", v.Detail)
	assert.Equal(t, "array", v.Expected)
	assert.Equal(t, "string", v.Actual)
}

func TestResult_PassAndCounts(t *testing.T) {
	var r Result
	assert.True(t, r.Pass())
	require.NoError(t, r.Err())

	r.Add(Required("/a", "a"), Required("/b", "b"), AdditionalProperty("/c", "c", nil))
	assert.False(t, r.Pass())
	assert.Equal(t, map[Rule]int{RuleRequired: 2, RuleAdditionalProperty: 1}, r.CountByRule())
	assert.ErrorContains(t, r.Err(), "3 violation(s)")
}

func TestTransform_RootPath(t *testing.T) {
	v := Transform(errors.New("boom"))
	assert.Equal(t, "", v.Path)
	assert.Equal(t, "<root>: [transform] boom", v.String())
}

func TestDiagnostics_Err(t *testing.T) {
	var d Diagnostics
	require.NoError(t, d.Err())

	d.AddWarning("unused", "unused transform", "cpath->Dataset", "")
	assert.True(t, d.IsValid())

	d.AddError("duplicate_target", "target mapped twice", "cpath->Dataset", "title")
	assert.True(t, d.HasErrors())
	assert.EqualError(t, d.Err(), "[cpath->Dataset] title: [duplicate_target] target mapped twice")
}
