package czdb

import "unicode/utf8"

// decodeRecordAt reads and validates the record bytes for a matched range
// entry: length bytes at recordSectionOrigin+ptr. Record bytes are treated
// as opaque, UTF-8-ish text (spec §6) and returned verbatim; malformed
// bytes produce a per-query CorruptRecordError rather than failing the
// whole Handle (spec §4.5, §7).
func decodeRecordAt(src byteSource, recordSectionOrigin uint32, ptr uint32, length uint8) (string, error) {
	off := recordSectionOrigin + ptr

	buf, ok := src.asSlice(off, int(length))
	if !ok {
		scratch := make([]byte, length)
		if err := src.readExact(off, scratch); err != nil {
			return "", err
		}
		buf = scratch
	}

	if !utf8.Valid(buf) {
		return "", &CorruptRecordError{Ptr: ptr, Len: int(length)}
	}

	return string(buf), nil
}
