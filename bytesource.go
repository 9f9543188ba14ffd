package czdb

import (
	"io"
	"os"
)

// byteSource is the narrow polymorphic abstraction spec §4.3 and §9 call
// for: a capability to read bytes at an offset, with an optional zero-copy
// path. It has three concrete implementations — diskSource, mmapSource and
// memorySource — one per backend. None of them is safe to use after close.
type byteSource interface {
	// readExact fills dst with the dst-length bytes starting at offset. It
	// never returns a short read: a short underlying read is an *IOError.
	readExact(offset uint32, dst []byte) error

	// asSlice returns a zero-copy view of length bytes starting at offset,
	// when the backend supports it (mmap, memory). ok is false for
	// backends that cannot offer a zero-copy view (disk), in which case the
	// caller must fall back to readExact into a scratch buffer.
	asSlice(offset uint32, length int) (b []byte, ok bool)

	// size returns the total size of the underlying data, in bytes.
	size() int64

	// close releases any resources (file descriptors, mappings, buffers)
	// held by the source.
	close() error
}

// diskSource is the buffered-disk byteSource: a single *os.File with an
// implicit seek/read cursor shared by every call. diskSource itself is not
// synchronized; a Handle using this backend serializes every access to it
// through its own diskMu mutex.
type diskSource struct {
	path string
	f    *os.File
	sz   int64
}

func openDiskSource(path string) (*diskSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &IOError{Path: path, Err: err}
	}

	return &diskSource{path: path, f: f, sz: fi.Size()}, nil
}

// readExact implements byteSource for *diskSource.
func (d *diskSource) readExact(offset uint32, dst []byte) error {
	_, err := d.f.Seek(int64(offset), io.SeekStart)
	if err != nil {
		return &IOError{Path: d.path, Offset: int64(offset), Err: err}
	}

	_, err = io.ReadFull(d.f, dst)
	if err != nil {
		return &IOError{Path: d.path, Offset: int64(offset), Err: err}
	}

	return nil
}

// asSlice implements byteSource for *diskSource: the buffered-disk backend
// never offers zero-copy slices (spec §4.3).
func (d *diskSource) asSlice(_ uint32, _ int) (b []byte, ok bool) { return nil, false }

// size implements byteSource for *diskSource.
func (d *diskSource) size() int64 { return d.sz }

// close implements byteSource for *diskSource.
func (d *diskSource) close() error {
	if err := d.f.Close(); err != nil {
		return &IOError{Path: d.path, Err: err}
	}
	return nil
}

// memorySource is the fully-resident byteSource: the whole file loaded into
// one heap-owned buffer at Open. Reads and slices are free of I/O
// thereafter.
type memorySource struct {
	path string
	data []byte
}

func openMemorySource(path string) (*memorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return &memorySource{path: path, data: data}, nil
}

// readExact implements byteSource for *memorySource.
func (m *memorySource) readExact(offset uint32, dst []byte) error {
	b, ok := m.asSlice(offset, len(dst))
	if !ok {
		return &IOError{Path: m.path, Offset: int64(offset), Err: io.ErrUnexpectedEOF}
	}
	copy(dst, b)
	return nil
}

// asSlice implements byteSource for *memorySource.
func (m *memorySource) asSlice(offset uint32, length int) (b []byte, ok bool) {
	start := int64(offset)
	end := start + int64(length)
	if start < 0 || end > int64(len(m.data)) {
		return nil, false
	}
	return m.data[start:end], true
}

// size implements byteSource for *memorySource.
func (m *memorySource) size() int64 { return int64(len(m.data)) }

// close implements byteSource for *memorySource.
func (m *memorySource) close() error {
	m.data = nil
	return nil
}
