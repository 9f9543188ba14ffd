package czdb

import (
	"encoding/binary"
	"fmt"
)

// Fixed byte offsets within the file prologue, per spec §6's layout table.
const (
	offVersion    = 0
	offReserved   = 1
	offIndexStart = 5
	offIndexEnd   = 9
	offParamBlock = 13

	offFirstOctetTable = offParamBlock + paramBlockLen         // 45
	firstOctetTableLen = 256 * 8                                // 2048
	prologueLen        = offFirstOctetTable + firstOctetTableLen // 2093
)

// buildLayout reads and validates the file prologue from src, decrypts the
// header parameter block with key, and returns the resulting Layout. It
// performs every structural check spec §4.2 and §3's invariants I1-I4
// require; a database that fails any of them never produces a usable
// Handle.
func buildLayout(src byteSource, key []byte) (*Layout, error) {
	fileSize := src.size()
	if fileSize < int64(prologueLen) {
		return nil, ErrTruncated
	}

	buf := make([]byte, prologueLen)
	if err := src.readExact(0, buf); err != nil {
		return nil, err
	}

	version, err := parseVersion(buf[offVersion])
	if err != nil {
		return nil, err
	}

	indexStart := binary.LittleEndian.Uint32(buf[offIndexStart : offIndexStart+4])
	indexEnd := binary.LittleEndian.Uint32(buf[offIndexEnd : offIndexEnd+4])

	plain, err := ecbDecrypt(key, buf[offParamBlock:offParamBlock+paramBlockLen])
	if err != nil {
		return nil, err
	}

	pb, err := parseParamBlock(plain)
	if err != nil {
		return nil, err
	}

	if uint64(pb.expectedFileSize) != uint64(fileSize) {
		return nil, &ExpiredOrMismatchedError{
			Reason: fmt.Sprintf("header expects file size %d, file is %d", pb.expectedFileSize, fileSize),
		}
	}

	addrWidth := version.addrWidth()
	entrySize := 2*addrWidth + 5 // start_ip + end_ip + u32 record_ptr + u8 record_len

	if indexStart > indexEnd || uint64(indexEnd) > uint64(fileSize) {
		return nil, &CorruptHeaderError{
			Reason: fmt.Sprintf("index bounds [%d, %d) invalid for file of size %d", indexStart, indexEnd, fileSize),
		}
	}

	span := indexEnd - indexStart
	if span%uint32(entrySize) != 0 {
		return nil, &CorruptHeaderError{
			Reason: fmt.Sprintf("index span %d is not a multiple of entry size %d", span, entrySize),
		}
	}

	totalEntries := span / uint32(entrySize)
	if totalEntries < 1 {
		return nil, &CorruptHeaderError{Reason: "index contains no entries"}
	}

	table, err := parseFirstOctetTable(buf[offFirstOctetTable:offFirstOctetTable+firstOctetTableLen], totalEntries)
	if err != nil {
		return nil, err
	}

	layout := &Layout{
		version:             version,
		addrWidth:           addrWidth,
		entrySize:           entrySize,
		indexStart:          indexStart,
		indexEnd:            indexEnd,
		totalEntries:        totalEntries,
		firstOctetTable:     table,
		recordSectionOrigin: pb.recordSectionOrigin,
	}

	if err := validateRangeIndex(src, layout); err != nil {
		return nil, err
	}

	return layout, nil
}

// parseVersion decodes the single-byte IP version tag (spec §6).
func parseVersion(tag byte) (Version, error) {
	switch tag {
	case byte(VersionIPv4):
		return VersionIPv4, nil
	case byte(VersionIPv6):
		return VersionIPv6, nil
	default:
		return 0, &CorruptHeaderError{Reason: fmt.Sprintf("unknown ip version tag %d", tag)}
	}
}

// parseFirstOctetTable decodes the 256-entry first-octet table and checks
// that every non-empty slot's bounds fit within [0, totalEntries) and that
// slots are monotone non-decreasing on their start indices (spec §4.2).
// Leading-octet consistency (I3) is checked later, against the actual
// range-index entries, in validateRangeIndex.
func parseFirstOctetTable(buf []byte, totalEntries uint32) ([256]firstOctetSlot, error) {
	var table [256]firstOctetSlot

	var lastStart uint32
	haveLast := false

	for i := 0; i < 256; i++ {
		off := i * 8
		lo := binary.LittleEndian.Uint32(buf[off : off+4])
		hi := binary.LittleEndian.Uint32(buf[off+4 : off+8])

		if lo == emptySlot && hi == emptySlot {
			table[i] = firstOctetSlot{lo: emptySlot, hi: emptySlot}
			continue
		}

		if lo > hi || hi >= totalEntries {
			return table, &CorruptHeaderError{
				Reason: fmt.Sprintf("first-octet table slot %d has invalid bounds [%d, %d] for %d entries", i, lo, hi, totalEntries),
			}
		}

		if haveLast && lo < lastStart {
			return table, &CorruptHeaderError{
				Reason: fmt.Sprintf("first-octet table slot %d start %d is less than a previous slot's start %d", i, lo, lastStart),
			}
		}

		lastStart = lo
		haveLast = true
		table[i] = firstOctetSlot{lo: lo, hi: hi}
	}

	return table, nil
}
