//go:build unix

package image

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps a file read-only. The mapping outlives the file
// descriptor; the returned closer unmaps it.
func mapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return nil, nil, Fatalf("empty image file: %s", f.Name())
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, Fatal(err)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
