package image

import (
	"os"

	"github.com/spf13/afero"

	"github.com/rstms/nds/nitrofs"
)

// RebuildImage extracts a container to a temporary tree and builds a
// fresh image from it. A container our own builder produced survives
// this round trip byte for byte.
func RebuildImage(dstFile, srcFile string, opts *nitrofs.BuildOptions) error {
	src, err := OpenImage(srcFile)
	if err != nil {
		return Fatal(err)
	}
	defer src.Close()

	tempDir, err := os.MkdirTemp("", "ndsimg-*")
	if err != nil {
		return Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	if err := src.Extract(tempDir, nil); err != nil {
		return Fatal(err)
	}

	fsys := afero.NewOsFs()
	if src.Kind == KindNARC {
		return BuildNarc(fsys, tempDir, dstFile, opts)
	}
	return BuildRom(fsys, tempDir, dstFile, opts)
}
