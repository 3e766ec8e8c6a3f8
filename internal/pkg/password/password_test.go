package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("m1001")
	require.NoError(t, err)

	assert.NotEqual(t, "m1001", hash)
	assert.True(t, Verify("m1001", hash))
	assert.False(t, Verify("M1001", hash), "verification is case sensitive")
	assert.False(t, Verify("wrong", hash))
}

func TestHashToken(t *testing.T) {
	a := HashToken("some-refresh-token")
	b := HashToken("some-refresh-token")
	c := HashToken("another-token")

	assert.Equal(t, a, b, "token hashing must be deterministic for lookup")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
