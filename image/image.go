package image

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/rstms/nds"
	"github.com/rstms/nds/narc"
	"github.com/rstms/nds/rom"
)

type Kind int

const (
	KindROM Kind = iota
	KindNARC
)

func (k Kind) String() string {
	if k == KindNARC {
		return "narc"
	}
	return "rom"
}

var narcMagic = []byte("NARC")

// FileRecord describes one entry of a scanned image tree.
type FileRecord struct {
	Name   string
	Dir    bool
	Size   uint32
	FileID uint16
}

// Image is an opened container: a memory-mapped (or buffered) byte
// source plus its decoded form. The mapping is read-only and shared
// by all extraction workers.
type Image struct {
	Filename string
	Kind     Kind

	Rom  *rom.Rom
	Narc *narc.Archive

	data   []byte
	closer func() error
	fs     afero.Fs
}

// OpenImage maps a container file and decodes it. The archive format
// is recognized by its magic; anything else is treated as a ROM.
func OpenImage(filename string) (*Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, Fatal(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Fatal(err)
	}
	data, closer, err := mapFile(f, info.Size())
	f.Close()
	if err != nil {
		return nil, Fatal(err)
	}
	i, err := NewImage(filename, data)
	if err != nil {
		closer()
		return nil, err
	}
	i.closer = closer
	return i, nil
}

// NewImage decodes an in-memory container. Callers that already hold
// the bytes (tests, pipelines) use this directly.
func NewImage(filename string, data []byte) (*Image, error) {
	i := &Image{
		Filename: filename,
		data:     data,
		fs:       afero.NewOsFs(),
	}
	if len(data) >= len(narcMagic) && bytes.Equal(data[:len(narcMagic)], narcMagic) {
		a, err := narc.Decode(data)
		if err != nil {
			return nil, Fatal(err)
		}
		i.Kind = KindNARC
		i.Narc = a
	} else {
		r, err := rom.Decode(data)
		if err != nil {
			return nil, Fatal(err)
		}
		i.Kind = KindROM
		i.Rom = r
	}
	return i, nil
}

// SetFs redirects extraction output to another filesystem; the
// default is the host filesystem.
func (i *Image) SetFs(fs afero.Fs) {
	i.fs = fs
}

func (i *Image) Close() error {
	if i.closer != nil {
		err := i.closer()
		i.closer = nil
		if err != nil {
			return Fatal(err)
		}
	}
	return nil
}

// Tree returns the decoded directory tree.
func (i *Image) Tree() *nds.Tree {
	if i.Kind == KindNARC {
		return i.Narc.FS.Tree
	}
	return i.Rom.FS.Tree
}

// ScanFiles walks the tree and returns a record per entry, parents
// before children.
func (i *Image) ScanFiles() ([]FileRecord, error) {
	records := []FileRecord{}
	t := i.Tree()
	err := t.Walk(func(path string, ref nds.NodeRef) error {
		r := FileRecord{Name: path, Dir: t.IsDir(ref)}
		if !r.Dir {
			r.Size = t.Data(ref).Len()
			r.FileID = t.FileID(ref)
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, Fatal(err)
	}
	return records, nil
}

// Info returns a human-readable summary of the container.
func (i *Image) Info() map[string]any {
	t := i.Tree()
	info := map[string]any{
		"kind":        i.Kind.String(),
		"size":        len(i.data),
		"files":       t.NumFiles(),
		"directories": t.NumDirs(),
	}
	if i.Kind == KindROM {
		h := i.Rom.Header
		info["title"] = string(bytes.TrimRight(h.Title[:], "\x00"))
		info["gamecode"] = string(h.GameCode[:])
		info["makercode"] = string(h.MakerCode[:])
		info["arm9"] = fmt.Sprintf("offset=%#x size=%d", h.Arm9.Offset, h.Arm9.Size)
		info["arm7"] = fmt.Sprintf("offset=%#x size=%d", h.Arm7.Offset, h.Arm7.Size)
		info["overlays"] = len(i.Rom.Arm9Overlays) + len(i.Rom.Arm7Overlays)
		info["header_crc"] = fmt.Sprintf("%#04x (computed %#04x)", h.HeaderCRC, h.Checksum())
		info["logo_crc"] = fmt.Sprintf("%#04x (computed %#04x)", h.LogoCRC, rom.CRC16(h.Logo[:]))
	}
	return info
}
