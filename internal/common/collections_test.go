package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceHelpers(t *testing.T) {
	assert.True(t, IsEmpty([]string{}))
	assert.True(t, IsSingle([]int{1}))
	assert.True(t, IsMultiple([]int{1, 2}))
	assert.False(t, IsMultiple([]int{1}))
}

func TestSortedKeys(t *testing.T) {
	m := map[string]any{"zeta": 1, "alpha": 2, "mid": nil}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, SortedKeys(m))
	assert.Empty(t, SortedKeys(map[string]int{}))
}
