package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate("cat")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("cat")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(id, "cat-"))
	suffix := strings.TrimPrefix(id, "cat-")
	assert.Len(t, suffix, versionLength)
	for _, r := range suffix {
		assert.Contains(t, versionAlphabet, string(r))
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate("batch")
		assert.True(t, strings.HasPrefix(id, "batch-"))
	})
}
