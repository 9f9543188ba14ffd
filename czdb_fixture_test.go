package czdb

import (
	"crypto/aes"
	"encoding/base64"
	"encoding/binary"
	"net/netip"
)

// fixtureEntry is one range entry in a synthetic test database, expressed
// as a dotted-quad or IPv6 literal string for readability.
type fixtureEntry struct {
	startIP string
	endIP   string
	record  string
}

// buildFixture assembles a minimal, well-formed IPv4 CZDB file in memory.
// It is buildFixtureVersion pinned to VersionIPv4; see buildFixtureV6 for
// the IPv6 equivalent.
func buildFixture(key []byte, entries []fixtureEntry) ([]byte, string) {
	return buildFixtureVersion(key, VersionIPv4, entries)
}

// buildFixtureV6 is buildFixture's IPv6 counterpart: the same wire format,
// with 16-byte addresses and the version tag set to VersionIPv6.
func buildFixtureV6(key []byte, entries []fixtureEntry) ([]byte, string) {
	return buildFixtureVersion(key, VersionIPv6, entries)
}

// buildFixtureVersion assembles a minimal, well-formed CZDB file in memory
// for the given address family, matching spec.md §6's wire format byte for
// byte: prologue (version tag, index bounds, AES-ECB-encrypted parameter
// block, first-octet table), sorted range index, and record section.
// entries must already be sorted by startIP with no overlaps. It returns
// the raw file bytes and the base64 key that decrypts them.
//
// This mirrors FirPic-go-ip-country-resolver's own setupTestDB-style
// fixture builders, generalized from a BoltDB handle to a raw byte blob.
func buildFixtureVersion(key []byte, version Version, entries []fixtureEntry) ([]byte, string) {
	addrWidth := version.addrWidth()
	entrySize := 2*addrWidth + 5

	records := make([]byte, 0, 64)
	type resolved struct {
		startIP, endIP []byte
		ptr            uint32
		length         uint8
	}
	resolvedEntries := make([]resolved, 0, len(entries))

	for _, e := range entries {
		ptr := uint32(len(records))
		records = append(records, []byte(e.record)...)
		resolvedEntries = append(resolvedEntries, resolved{
			startIP: parseAddr(e.startIP, version),
			endIP:   parseAddr(e.endIP, version),
			ptr:     ptr,
			length:  uint8(len(e.record)),
		})
	}

	indexStart := uint32(prologueLen)
	indexEnd := indexStart + uint32(len(resolvedEntries))*uint32(entrySize)
	recordSectionOrigin := indexEnd
	fileSize := recordSectionOrigin + uint32(len(records))

	buf := make([]byte, fileSize)

	buf[offVersion] = byte(version)
	binary.LittleEndian.PutUint32(buf[offIndexStart:], indexStart)
	binary.LittleEndian.PutUint32(buf[offIndexEnd:], indexEnd)

	plain := make([]byte, paramBlockLen)
	binary.LittleEndian.PutUint32(plain[0:4], magicFingerprint)
	binary.LittleEndian.PutUint32(plain[4:8], fileSize)
	binary.LittleEndian.PutUint32(plain[8:12], recordSectionOrigin)
	binary.LittleEndian.PutUint32(plain[12:16], 0)

	cipherBlock, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	bs := cipherBlock.BlockSize()
	enc := make([]byte, len(plain))
	for off := 0; off < len(plain); off += bs {
		cipherBlock.Encrypt(enc[off:off+bs], plain[off:off+bs])
	}
	copy(buf[offParamBlock:offParamBlock+paramBlockLen], enc)

	for i := 0; i < 256; i++ {
		off := offFirstOctetTable + i*8
		binary.LittleEndian.PutUint32(buf[off:off+4], emptySlot)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], emptySlot)
	}

	for i, re := range resolvedEntries {
		octet := re.startIP[0]
		slotOff := offFirstOctetTable + int(octet)*8
		lo := binary.LittleEndian.Uint32(buf[slotOff : slotOff+4])
		if lo == emptySlot {
			binary.LittleEndian.PutUint32(buf[slotOff:slotOff+4], uint32(i))
		}
		binary.LittleEndian.PutUint32(buf[slotOff+4:slotOff+8], uint32(i))
	}

	for i, re := range resolvedEntries {
		off := int(indexStart) + i*entrySize
		copy(buf[off:off+addrWidth], re.startIP)
		copy(buf[off+addrWidth:off+2*addrWidth], re.endIP)
		binary.LittleEndian.PutUint32(buf[off+2*addrWidth:off+2*addrWidth+4], re.ptr)
		buf[off+2*addrWidth+4] = re.length
	}

	copy(buf[recordSectionOrigin:], records)

	return buf, base64.StdEncoding.EncodeToString(key)
}

// parseAddr parses a dotted-quad or IPv6 literal string into its big-endian
// byte form, sized for version (4 bytes for VersionIPv4, 16 for
// VersionIPv6). It panics on malformed input or a family mismatch, which is
// only ever a test-authoring bug.
func parseAddr(s string, version Version) []byte {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}

	if version == VersionIPv6 {
		if addr.Is4() || addr.Is4In6() {
			panic("parseAddr: IPv4 literal passed for a VersionIPv6 fixture: " + s)
		}
		b := addr.As16()
		return b[:]
	}

	if !addr.Is4() && !addr.Is4In6() {
		panic("parseAddr: IPv6 literal passed for a VersionIPv4 fixture: " + s)
	}
	b := addr.As4()
	return b[:]
}

// testKey is the fixed AES-128 key fixtures are encrypted with.
var testKey = []byte("0123456789abcdef")

// sampleEntries reproduces spec.md §8's three-entry synthetic database:
// A (CN|Beijing), B (US|California), C (US|Oregon).
var sampleEntries = []fixtureEntry{
	{startIP: "1.0.0.0", endIP: "1.0.0.255", record: "CN|Beijing"},
	{startIP: "8.8.8.0", endIP: "8.8.8.255", record: "US|California"},
	{startIP: "8.8.9.0", endIP: "8.8.9.255", record: "US|Oregon"},
}

// sampleEntriesV6 is sampleEntries' IPv6 equivalent: three non-overlapping
// ranges spanning two distinct leading octets (0x20 and 0x26), so the
// first-octet partition and binary search get the same exercise as the
// IPv4 fixtures above.
var sampleEntriesV6 = []fixtureEntry{
	{startIP: "2001:db8::", endIP: "2001:db8::ffff", record: "CN|Beijing"},
	{startIP: "2600:1901:0:1::", endIP: "2600:1901:0:1::ffff", record: "US|California"},
	{startIP: "2600:1901:0:2::", endIP: "2600:1901:0:2::ffff", record: "US|Oregon"},
}
