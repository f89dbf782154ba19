package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("0x00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	require.Equal(t, byte(0xff), a[AddressLength-1])
	require.False(t, a.IsZero())

	// Bare hex without the prefix is accepted too.
	bare, err := ParseAddress("00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	require.Equal(t, a, bare)
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, s := range []string{"", "0x1234", "0xzz000000000000000000000000000000000000zz", "not-an-address"} {
		_, err := ParseAddress(s)
		require.ErrorIs(t, err, ErrInvalidAddress, "input %q", s)
	}
}

func TestAddressStringRoundTrip(t *testing.T) {
	var a Address
	for i := range a {
		a[i] = byte(i)
	}
	parsed, err := ParseAddress(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)
}

func TestZeroAddressIsSentinel(t *testing.T) {
	require.True(t, ZeroAddress.IsZero())
	parsed, err := ParseAddress("0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	require.True(t, parsed.IsZero())
}

func TestAddressJSON(t *testing.T) {
	a, err := ParseAddress("0x0000000000000000000000000000000000000042")
	require.NoError(t, err)

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	require.JSONEq(t, `"0x0000000000000000000000000000000000000042"`, string(raw))

	var back Address
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, a, back)
}
