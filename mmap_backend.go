package czdb

import (
	"io"
	"os"
)

// mmapSource is the memory-mapped byteSource. The whole file is mapped once
// at Open; reads thereafter are slice references into the mapping, with no
// further I/O. The mapping's lifetime is tied to the Handle that owns it.
//
// Grounded on the mmap.Mapping abstraction (Open/Bytes/Close over
// unix.Mmap/unix.Munmap) used elsewhere in the example corpus for
// zero-copy, gigabyte-scale file access.
type mmapSource struct {
	path string
	f    *os.File
	data []byte
}

func openMmapSource(path string) (*mmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &IOError{Path: path, Err: err}
	}

	data, err := osMmap(f, int(fi.Size()))
	if err != nil {
		_ = f.Close()
		return nil, &IOError{Path: path, Err: err}
	}

	return &mmapSource{path: path, f: f, data: data}, nil
}

// readExact implements byteSource for *mmapSource.
func (m *mmapSource) readExact(offset uint32, dst []byte) error {
	b, ok := m.asSlice(offset, len(dst))
	if !ok {
		return &IOError{Path: m.path, Offset: int64(offset), Err: io.ErrUnexpectedEOF}
	}
	copy(dst, b)
	return nil
}

// asSlice implements byteSource for *mmapSource.
func (m *mmapSource) asSlice(offset uint32, length int) (b []byte, ok bool) {
	start := int64(offset)
	end := start + int64(length)
	if start < 0 || end > int64(len(m.data)) {
		return nil, false
	}
	return m.data[start:end], true
}

// size implements byteSource for *mmapSource.
func (m *mmapSource) size() int64 { return int64(len(m.data)) }

// close implements byteSource for *mmapSource.
func (m *mmapSource) close() error {
	err := osMunmap(m.data)
	m.data = nil

	closeErr := m.f.Close()
	if err != nil {
		return &IOError{Path: m.path, Err: err}
	}
	if closeErr != nil {
		return &IOError{Path: m.path, Err: closeErr}
	}
	return nil
}
