package util

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: checks that s uses only [0-9a-f]
func isHexLower(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func TestNewRunID_BasicProps(t *testing.T) {
	t.Parallel()

	id := NewRunID()
	require.Len(t, id, 16, "8 bytes hex")
	assert.True(t, isHexLower(id), "id must be lowercase hex [0-9a-f], got %q", id)
	assert.NotEqual(t, "0000000000000000", id, "id should not be all zeros")
}

func TestNewRunID_HexRoundtrip(t *testing.T) {
	t.Parallel()

	id := NewRunID()
	raw, err := hex.DecodeString(id)
	require.NoErrorf(t, err, "hex.DecodeString failed for %q", id)
	require.Len(t, raw, 8)

	// Encoding the decoded bytes back must reproduce id exactly
	// (hex.EncodeToString is lowercase, matching NewRunID's output).
	enc := hex.EncodeToString(raw)
	assert.Equal(t, id, enc, "roundtrip mismatch")
}

func TestNewRunID_Uniqueness_Sample(t *testing.T) {
	t.Parallel()

	const n = 256 // reasonable sample size; collision is extremely unlikely
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewRunID()
		_, dup := seen[id]
		require.Falsef(t, dup, "duplicate id generated: %q", id)
		seen[id] = struct{}{}
	}
}

// Extra: two consecutive calls should differ almost always. If this ever
// collided (ultra unlikely), it would fail alongside the uniqueness test.
func TestNewRunID_TwoCallsDiffer(t *testing.T) {
	t.Parallel()

	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b, "two consecutive ids are equal")
}
