package state_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/matthacksteiner/kinderlosfrei/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_MatchesCompactSerialization(t *testing.T) {
	raw := []byte("{\n  \"title\": \"Home\",\n  \"blocks\": [1, 2]\n}")

	got, err := state.Fingerprint(raw, false)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(`{"title":"Home","blocks":[1,2]}`))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestFingerprint_Deterministic(t *testing.T) {
	raw := []byte(`{"a":1,"b":{"c":[true,null,"x"]}}`)
	first, err := state.Fingerprint(raw, false)
	require.NoError(t, err)
	second, err := state.Fingerprint(raw, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprint_WhitespaceInsensitive(t *testing.T) {
	a, err := state.Fingerprint([]byte(`{"a":1}`), false)
	require.NoError(t, err)
	b, err := state.Fingerprint([]byte("{ \"a\" :\n 1 }"), false)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprint_KeyOrder(t *testing.T) {
	ab := []byte(`{"a":1,"b":{"y":2,"x":1}}`)
	ba := []byte(`{"b":{"x":1,"y":2},"a":1}`)

	t.Run("order sensitive by default", func(t *testing.T) {
		h1, err := state.Fingerprint(ab, false)
		require.NoError(t, err)
		h2, err := state.Fingerprint(ba, false)
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("canonical ignores order", func(t *testing.T) {
		h1, err := state.Fingerprint(ab, true)
		require.NoError(t, err)
		h2, err := state.Fingerprint(ba, true)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})
}

func TestFingerprint_CanonicalKeepsNumbers(t *testing.T) {
	a, err := state.Fingerprint([]byte(`{"n":1.50}`), true)
	require.NoError(t, err)
	b, err := state.Fingerprint([]byte(`{"n":1.5}`), true)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFingerprint_ContentChange(t *testing.T) {
	a, err := state.Fingerprint([]byte(`{"title":"Home"}`), false)
	require.NoError(t, err)
	b, err := state.Fingerprint([]byte(`{"title":"Start"}`), false)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFingerprint_InvalidJSON(t *testing.T) {
	_, err := state.Fingerprint([]byte(`{"a":`), false)
	assert.Error(t, err)
	_, err = state.Fingerprint([]byte(`{"a":`), true)
	assert.Error(t, err)
}
