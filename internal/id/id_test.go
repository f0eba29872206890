package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for range 1000 {
		id, err := Generate("cli")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}
	assert.Len(t, ids, 1000)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{"cli", "evt", "req"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+21)
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate("cli"), "cli-"))
	})
}

func TestDocument_Alphanumeric(t *testing.T) {
	for range 100 {
		id, err := Document()
		require.NoError(t, err)
		assert.Len(t, id, 20)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(documentAlphabet, r), "unexpected rune %q in %s", r, id)
		}
	}
}

func TestUID(t *testing.T) {
	a, err := UID()
	require.NoError(t, err)
	b, err := UID()
	require.NoError(t, err)

	assert.Len(t, a, 28)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}
