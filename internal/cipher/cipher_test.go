package cipher

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCM_RoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	c, err := New(key)
	require.NoError(t, err)

	first, err := c.Encrypt("12")
	require.NoError(t, err)
	second, err := c.Encrypt("12")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "nonce must differ between calls")
	assert.NotContains(t, first, "12")

	plain, err := c.Decrypt(first)
	require.NoError(t, err)
	assert.Equal(t, "12", plain)
}

func TestAESGCM_RejectsTamperedData(t *testing.T) {
	c, err := NewRandom()
	require.NoError(t, err)

	enc, err := c.Encrypt("2030")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = c.Decrypt("AAAA")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New("not base64!")
	require.Error(t, err)

	_, err = New(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}
