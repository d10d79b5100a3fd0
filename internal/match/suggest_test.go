package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest_SeparatorAndCaseVariants(t *testing.T) {
	declared := []string{"title", "creator", "keywords", "subject_id", "url"}

	assert.Equal(t, []string{"subject_id"}, Suggest("subjectId", declared, 3))
	assert.Equal(t, []string{"keywords"}, Suggest("keyword", declared, 3))
	assert.Equal(t, []string{"creator"}, Suggest("Creator", declared, 1))
}

func TestSuggest_NothingClose(t *testing.T) {
	declared := []string{"title", "creator", "keywords"}
	assert.Nil(t, Suggest("internal_notes", declared, 3))
}

func TestSuggest_SkipsExactAndRespectsLimit(t *testing.T) {
	perm := []string{"Homo sapiens", "Mus musculus", "Homo sapiens neanderthalensis"}

	got := Suggest("Homo sapien", perm, 1)
	assert.Equal(t, []string{"Homo sapiens"}, got)

	assert.Nil(t, Suggest("Mus musculus", []string{"Mus musculus"}, 3))
}

func TestRank_StableForTies(t *testing.T) {
	ranked := Rank("abcd", []string{"abce", "abcf", "abcd"})
	names := make([]string, len(ranked))
	for i, c := range ranked {
		names[i] = c.Name
	}

	assert.Equal(t, []string{"abce", "abcf"}, names)
}

func TestRank_IsDeterministic(t *testing.T) {
	cands := []string{"dataset_id", "datasetName", "data_type", "dataUseCode"}
	assert.Equal(t, Rank("datasetID", cands), Rank("datasetID", cands))
}
