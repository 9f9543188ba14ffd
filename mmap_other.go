//go:build !unix

package czdb

import (
	"fmt"
	"os"
	"runtime"
)

// osMmap is unimplemented outside of unix-family platforms; OpenMmap returns
// an error on these platforms rather than silently falling back to a
// different backend, so callers notice at Open time rather than load time.
func osMmap(_ *os.File, _ int) ([]byte, error) {
	return nil, fmt.Errorf("czdb: mmap backend is not supported on %s", runtime.GOOS)
}

// osMunmap is unimplemented outside of unix-family platforms.
func osMunmap(_ []byte) error {
	return nil
}
