//go:build unix

package czdb

import (
	"os"

	"golang.org/x/sys/unix"
)

// osMmap maps the whole file read-only into the process address space.
func osMmap(f *os.File, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

// osMunmap releases a mapping obtained from osMmap.
func osMunmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Munmap(data)
}
