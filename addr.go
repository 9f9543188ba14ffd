package czdb

import "net/netip"

// addrBytes returns the big-endian byte representation of ip (4 bytes for
// IPv4, 16 for IPv6) and the Version it belongs to. netip.Addr, not net.IP,
// is used throughout this package, matching the modern-Go idiom the
// teacher-family codebases build their own IP handling on.
func addrBytes(ip netip.Addr) ([]byte, Version, error) {
	if !ip.IsValid() {
		return nil, 0, &InvalidAddressError{Reason: "zero-value address"}
	}

	if ip.Is4() || ip.Is4In6() {
		b := ip.As4()
		return b[:], VersionIPv4, nil
	}

	b := ip.As16()
	return b[:], VersionIPv6, nil
}
