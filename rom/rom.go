// Package rom reads and writes NDS cartridge images: the fixed
// header, the ARM9/ARM7 binaries, the overlay tables, the embedded
// Nitro filesystem, and the icon/banner block.
package rom

import (
	"github.com/rstms/nds"
	"github.com/rstms/nds/nitrofs"
)

// bannerLen returns the icon/banner block length for a banner version
// word. Only the byte range matters here; pixel decoding is out of
// scope.
func bannerLen(version uint16) int {
	switch version {
	case 2:
		return 0x940
	case 3:
		return 0xA40
	default:
		return 0x840
	}
}

// Rom is a decoded cartridge image. All byte slices are views into
// the source buffer; nothing is copied during parsing.
type Rom struct {
	Header *Header
	Data   []byte

	Arm9 []byte
	Arm7 []byte

	Arm9Overlays []Overlay
	Arm7Overlays []Overlay

	FS     *nitrofs.FileSystem
	Banner []byte
}

// slice bounds-checks a header-described region against the image.
func slice(data []byte, offset, length uint32, scope string) ([]byte, error) {
	end := int64(offset) + int64(length)
	if end > int64(len(data)) {
		return nil, nds.Truncatedf("%s: region [%#x, %#x) outside image of %d bytes",
			scope, offset, end, len(data))
	}
	return data[offset:end], nil
}

// Decode parses a cartridge image. Table references are validated;
// header and logo checksums are exposed on the header for callers
// that want to verify them.
func Decode(data []byte) (*Rom, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	arm9, err := slice(data, h.Arm9.Offset, h.Arm9.Size, "arm9 binary")
	if err != nil {
		return nil, err
	}
	arm7, err := slice(data, h.Arm7.Offset, h.Arm7.Size, "arm7 binary")
	if err != nil {
		return nil, err
	}
	fnt, err := slice(data, h.FNT.Offset, h.FNT.Length, "file name table")
	if err != nil {
		return nil, err
	}
	fat, err := slice(data, h.FAT.Offset, h.FAT.Length, "file allocation table")
	if err != nil {
		return nil, err
	}

	fs, err := nitrofs.Decode(fnt, fat)
	if err != nil {
		return nil, err
	}
	for id, r := range fs.FAT {
		if int64(r.End) > int64(len(data)) {
			return nil, nds.Structuref("file id %d: range [%#x, %#x) outside image of %d bytes",
				id, r.Start, r.End, len(data))
		}
	}

	ovl9Data, err := slice(data, h.Arm9Overlay.Offset, h.Arm9Overlay.Length, "arm9 overlay table")
	if err != nil {
		return nil, err
	}
	ovl9, err := DecodeOverlayTable(ovl9Data)
	if err != nil {
		return nil, err
	}
	ovl7Data, err := slice(data, h.Arm7Overlay.Offset, h.Arm7Overlay.Length, "arm7 overlay table")
	if err != nil {
		return nil, err
	}
	ovl7, err := DecodeOverlayTable(ovl7Data)
	if err != nil {
		return nil, err
	}
	for _, o := range append(append([]Overlay{}, ovl9...), ovl7...) {
		if o.FileID >= uint32(len(fs.FAT)) {
			return nil, nds.Structuref("overlay %d references file id %d, allocation table has %d entries",
				o.ID, o.FileID, len(fs.FAT))
		}
	}

	var banner []byte
	if h.IconOffset != 0 {
		verBytes, err := slice(data, h.IconOffset, 2, "icon/banner")
		if err != nil {
			return nil, err
		}
		version := uint16(verBytes[0]) | uint16(verBytes[1])<<8
		banner, err = slice(data, h.IconOffset, uint32(bannerLen(version)), "icon/banner")
		if err != nil {
			return nil, err
		}
	}

	return &Rom{
		Header:       h,
		Data:         data,
		Arm9:         arm9,
		Arm7:         arm7,
		Arm9Overlays: ovl9,
		Arm7Overlays: ovl7,
		FS:           fs,
		Banner:       banner,
	}, nil
}

// File returns a view of the contents of the file with the given id,
// overlay members included.
func (r *Rom) File(id uint16) ([]byte, error) {
	if int(id) >= len(r.FS.FAT) {
		return nil, nds.Structuref("file id %d exceeds allocation table of %d entries", id, len(r.FS.FAT))
	}
	rng := r.FS.FAT[id]
	return slice(r.Data, rng.Start, rng.Len(), "file data")
}

// OverlayCount reports how many allocation entries precede the named
// filesystem's first file id; those entries are overlay members.
func (r *Rom) OverlayCount() int {
	return int(r.FS.FirstID)
}
