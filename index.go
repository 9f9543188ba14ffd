package czdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// rangeEntry is the decoded form of one sorted range-index record.
type rangeEntry struct {
	startIP []byte
	endIP   []byte
	ptr     uint32
	length  uint8
}

// readRangeEntry reads and decodes range-index entry idx from src, per
// layout. It uses src's zero-copy path when available.
func readRangeEntry(src byteSource, layout *Layout, idx uint32) (rangeEntry, error) {
	off := layout.entryOffset(idx)
	w := layout.addrWidth

	buf, ok := src.asSlice(off, layout.entrySize)
	if !ok {
		scratch := make([]byte, layout.entrySize)
		if err := src.readExact(off, scratch); err != nil {
			return rangeEntry{}, err
		}
		buf = scratch
	}

	return rangeEntry{
		startIP: buf[:w],
		endIP:   buf[w : 2*w],
		ptr:     binary.LittleEndian.Uint32(buf[2*w : 2*w+4]),
		length:  buf[2*w+4],
	}, nil
}

// validateRangeIndex walks every entry of the sorted range index once,
// checking invariants I1 (strict monotonicity across adjacent entries), I2
// (start_ip <= end_ip), I4 (the record each entry points at lies within the
// file) and I3 (the first-octet table is an exact, gapless partition of the
// index by leading octet of start_ip).
func validateRangeIndex(src byteSource, layout *Layout) error {
	fileSize := src.size()

	var prev rangeEntry
	var havePrev bool

	var curOctet byte
	haveOctet := false

	var seen [256]bool

	for idx := uint32(0); idx < layout.totalEntries; idx++ {
		e, err := readRangeEntry(src, layout, idx)
		if err != nil {
			return err
		}

		if bytes.Compare(e.startIP, e.endIP) > 0 {
			return &CorruptHeaderError{
				Reason: fmt.Sprintf("entry %d has start_ip > end_ip", idx),
			}
		}

		if havePrev && bytes.Compare(prev.endIP, e.startIP) >= 0 {
			return &CorruptHeaderError{
				Reason: fmt.Sprintf("entry %d overlaps or is unordered relative to entry %d", idx, idx-1),
			}
		}

		absPtr := int64(layout.recordSectionOrigin) + int64(e.ptr)
		if absPtr < 0 || absPtr+int64(e.length) > fileSize {
			return &CorruptHeaderError{
				Reason: fmt.Sprintf("entry %d's record [%d, %d) lies outside the file", idx, absPtr, absPtr+int64(e.length)),
			}
		}

		octet := e.startIP[0]
		seen[octet] = true

		if !haveOctet {
			curOctet, haveOctet = octet, true
			if err := checkSlotStart(layout, curOctet, idx); err != nil {
				return err
			}
		} else if octet != curOctet {
			if err := checkSlotEnd(layout, curOctet, idx-1); err != nil {
				return err
			}
			curOctet = octet
			if err := checkSlotStart(layout, curOctet, idx); err != nil {
				return err
			}
		}

		prev, havePrev = e, true
	}

	if haveOctet {
		if err := checkSlotEnd(layout, curOctet, layout.totalEntries-1); err != nil {
			return err
		}
	}

	for b := 0; b < 256; b++ {
		if !seen[b] && !layout.firstOctetTable[b].empty() {
			return &CorruptHeaderError{
				Reason: fmt.Sprintf("first-octet table slot %d is non-empty but no entry has that leading octet", b),
			}
		}
	}

	return nil
}

// checkSlotStart verifies that the first-octet table's slot for octet
// begins exactly at idx.
func checkSlotStart(layout *Layout, octet byte, idx uint32) error {
	slot := layout.firstOctetTable[octet]
	if slot.empty() || slot.lo != idx {
		return &CorruptHeaderError{
			Reason: fmt.Sprintf("first-octet table slot %d does not start at entry %d", octet, idx),
		}
	}
	return nil
}

// checkSlotEnd verifies that the first-octet table's slot for octet ends
// exactly at idx.
func checkSlotEnd(layout *Layout, octet byte, idx uint32) error {
	slot := layout.firstOctetTable[octet]
	if slot.empty() || slot.hi != idx {
		return &CorruptHeaderError{
			Reason: fmt.Sprintf("first-octet table slot %d does not end at entry %d", octet, idx),
		}
	}
	return nil
}

// locateEntry finds the index of the range entry containing ipBytes, using
// the first-octet table to narrow the binary search to a single bucket.
// The search window is inclusive on both ends; the midpoint is computed
// without overflow. See spec §4.4 for the containment predicate and the
// historical off-by-one bug this formulation avoids (P7).
func locateEntry(src byteSource, layout *Layout, ipBytes []byte) (idx uint32, found bool, err error) {
	slot := layout.firstOctetTable[ipBytes[0]]
	if slot.empty() {
		return 0, false, nil
	}

	l := int64(slot.lo)
	h := int64(slot.hi)

	for l <= h {
		m := l + (h-l)/2

		e, rerr := readRangeEntry(src, layout, uint32(m))
		if rerr != nil {
			return 0, false, rerr
		}

		switch {
		case bytes.Compare(ipBytes, e.startIP) < 0:
			h = m - 1
		case bytes.Compare(ipBytes, e.endIP) > 0:
			l = m + 1
		default:
			return uint32(m), true, nil
		}
	}

	return 0, false, nil
}
