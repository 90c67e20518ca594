//go:build !unix

package image

import (
	"io"
	"os"
)

// mapFile reads the file into memory on platforms without mmap
// support; the closer releases nothing.
func mapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return nil, nil, Fatalf("empty image file: %s", f.Name())
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, Fatal(err)
	}
	return data, func() error { return nil }, nil
}
