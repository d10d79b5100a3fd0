package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRoot(t *testing.T, doc string) *Schema {
	t.Helper()

	d, err := Parse([]byte(doc), LoadOptions{})
	require.NoError(t, err)

	return d.Root
}

func TestCompose_MergesByName(t *testing.T) {
	base := mustRoot(t, `{
	  "type": "object",
	  "properties": {
	    "title":  {"type": "string"},
	    "source": {"type": "string", "enum": ["CPATH"]}
	  },
	  "required": ["title"],
	  "additionalProperties": true
	}`)

	mixin := mustRoot(t, `{
	  "properties": {
	    "source": {"enum": ["PREVENT"]},
	    "url":    {"type": "string"}
	  },
	  "required": ["url", "title"],
	  "additionalProperties": false
	}`)

	out := Compose(base, mixin)

	assert.Equal(t, []string{"title", "source", "url"}, out.PropertyNames())
	assert.Equal(t, []string{"title", "url"}, out.Required)
	assert.True(t, out.Closed())
	assert.Equal(t, []string{"object"}, out.Types)

	source := out.Property("source")
	assert.Equal(t, []string{"string"}, source.Types)
	assert.Equal(t, []any{"CPATH", "PREVENT"}, source.Enum)

	// inputs untouched
	assert.Equal(t, []any{"CPATH"}, base.Property("source").Enum)
	assert.Len(t, base.Properties, 2)
}

func TestCompose_LaterTypeOverrides(t *testing.T) {
	a := &Schema{Types: []string{"string"}}
	b := &Schema{Types: []string{"integer"}}

	assert.Equal(t, []string{"integer"}, Compose(a, b).Types)
	assert.Equal(t, []string{"string"}, Compose(b, a).Types)
	assert.Equal(t, []string{"string"}, Compose(a, &Schema{}).Types)
}

func TestCompose_FalseWins(t *testing.T) {
	open, closed := true, false

	out := Compose(&Schema{AdditionalProperties: &closed}, &Schema{AdditionalProperties: &open})
	assert.True(t, out.Closed())
}

func TestMarshal_RoundTripKeepsOrder(t *testing.T) {
	root := mustRoot(t, datasetSchema)

	data, err := Marshal(root)
	require.NoError(t, err)

	again, err := Parse(data, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, root.PropertyNames(), again.Root.PropertyNames())
	assert.Equal(t, root.Required, again.Root.Required)
	assert.True(t, again.Root.Closed())
	assert.True(t, json.Valid(data))
}

func TestMarshal_Cycle(t *testing.T) {
	doc, err := Parse([]byte(linkmlSchema), LoadOptions{Class: "Dataset"})
	require.NoError(t, err)

	data, err := Marshal(doc.Root)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
