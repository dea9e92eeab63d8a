package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	s, err := NewHMACSigner("0102030405060708090a0b0c0d0e0f1011121314", 0x42)
	require.NoError(t, err)
	assert.Equal(t, "Qp0qSsDlEvPPJCdrXJeH5B2WbcNE", s.Sign([]byte("device123|1700000000000")))
}

func TestNewHMACSignerRejectsBadKey(t *testing.T) {
	_, err := NewHMACSigner("zz", 0x42)
	assert.Error(t, err)
	_, err = NewHMACSigner("", 0x42)
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("42")
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), v)

	for _, bad := range []string{"", "4", "4242", "zz"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}
