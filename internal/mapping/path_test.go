package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		path    string
		want    []PathSegment
		wantErr bool
	}{
		{path: "title", want: []PathSegment{{Name: "title", Index: -1}}},
		{path: "links.homepage", want: []PathSegment{{Name: "links", Index: -1}, {Name: "homepage", Index: -1}}},
		{path: "tags[]", want: []PathSegment{{Name: "tags", IsSlice: true, Index: -1}}},
		{path: "files[2].name", want: []PathSegment{{Name: "files", Index: 2}, {Name: "name", Index: -1}}},
		{path: "SRA Study", want: []PathSegment{{Name: "SRA Study", Index: -1}}},
		{path: "", wantErr: true},
		{path: "a..b", wantErr: true},
		{path: "[]", wantErr: true},
		{path: "a[x]", wantErr: true},
		{path: "a[1", wantErr: true},
		{path: "a[-1]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fp, err := ParsePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, fp.Segments)
			assert.Equal(t, tt.path, fp.String())
		})
	}
}

func TestFieldPath_Predicates(t *testing.T) {
	nested, _ := ParsePath("links.homepage")
	slice, _ := ParsePath("tags[]")

	assert.True(t, nested.IsPlain())
	assert.False(t, slice.IsPlain())
	assert.Equal(t, "links", nested.Root())
	assert.Equal(t, "tags", slice.Root())
	assert.Empty(t, FieldPath{}.Root())
}

func TestFieldPath_Resolve(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{
		"title": "t",
		"links": {"homepage": "https://x"},
		"tags": ["a", "b"],
		"contacts": [{"name": "n1"}, {"email": "e"}, {"name": "n3"}],
		"groups": [{"members": ["x", "y"]}, {"members": ["z"]}],
		"files": ["f0", "f1"],
		"empty": null
	}`), &doc))

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{path: "title", want: "t", wantOK: true},
		{path: "links.homepage", want: "https://x", wantOK: true},
		{path: "tags[]", want: []any{"a", "b"}, wantOK: true},
		{path: "contacts[].name", want: []any{"n1", "n3"}, wantOK: true},
		{path: "groups[].members[]", want: []any{"x", "y", "z"}, wantOK: true},
		{path: "groups[].members", want: []any{[]any{"x", "y"}, []any{"z"}}, wantOK: true},
		{path: "files[1]", want: "f1", wantOK: true},
		{path: "files[5]"},
		{path: "missing"},
		{path: "links.missing"},
		{path: "title.nested"},
		{path: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fp, err := ParsePath(tt.path)
			require.NoError(t, err)

			got, ok := fp.Resolve(doc)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldPath_Set(t *testing.T) {
	out := map[string]any{}

	p, _ := ParsePath("contact.email")
	require.NoError(t, p.Set(out, "a@b"))

	p, _ = ParsePath("contact.name")
	require.NoError(t, p.Set(out, "n"))

	assert.Equal(t, map[string]any{"contact": map[string]any{"email": "a@b", "name": "n"}}, out)

	p, _ = ParsePath("contact.email.user")
	assert.Error(t, p.Set(out, "x"))

	p, _ = ParsePath("tags[]")
	assert.Error(t, p.Set(out, "x"))
}

func TestDeepCopy(t *testing.T) {
	src := map[string]any{"a": []any{map[string]any{"b": "c"}}}
	cp := deepCopy(src).(map[string]any)

	cp["a"].([]any)[0].(map[string]any)["b"] = "changed"

	assert.Equal(t, "c", src["a"].([]any)[0].(map[string]any)["b"])
}
