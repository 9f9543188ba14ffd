package czdb

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrBytes(t *testing.T) {
	t.Run("ipv4", func(t *testing.T) {
		b, v, err := addrBytes(netip.MustParseAddr("1.2.3.4"))
		require.NoError(t, err)
		assert.Equal(t, VersionIPv4, v)
		assert.Equal(t, []byte{1, 2, 3, 4}, b)
	})

	t.Run("ipv4-mapped ipv6", func(t *testing.T) {
		b, v, err := addrBytes(netip.MustParseAddr("::ffff:1.2.3.4"))
		require.NoError(t, err)
		assert.Equal(t, VersionIPv4, v)
		assert.Equal(t, []byte{1, 2, 3, 4}, b)
	})

	t.Run("ipv6", func(t *testing.T) {
		b, v, err := addrBytes(netip.MustParseAddr("2001:db8::1"))
		require.NoError(t, err)
		assert.Equal(t, VersionIPv6, v)
		assert.Len(t, b, 16)
	})

	t.Run("invalid", func(t *testing.T) {
		_, _, err := addrBytes(netip.Addr{})
		require.Error(t, err)

		var invalidAddr *InvalidAddressError
		assert.ErrorAs(t, err, &invalidAddr)
	})
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "ipv4", VersionIPv4.String())
	assert.Equal(t, "ipv6", VersionIPv6.String())
	assert.Equal(t, "unknown", Version(0).String())
}
