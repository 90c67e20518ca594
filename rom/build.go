package rom

import (
	"github.com/rstms/nds"
	"github.com/rstms/nds/nitrofs"
)

// regionAlign is the boundary every top-level region starts on;
// regions are padded with zero bytes.
const regionAlign = 0x200

// BuildInput carries everything needed to assemble a cartridge
// image. Header is a template: identification and loading fields pass
// through, offsets, lengths, sizes, and checksums are recomputed.
type BuildInput struct {
	Header *Header

	Arm9 []byte
	Arm7 []byte

	Arm9Overlays []Overlay
	Arm7Overlays []Overlay

	// OverlayData holds the contents of the allocation entries that
	// precede the named files, indexed by file id.
	OverlayData [][]byte

	Tree   *nds.Tree
	Source nitrofs.Source

	Banner []byte

	Options *nitrofs.BuildOptions
}

// Build assembles a cartridge image. Regions are appended in a fixed
// order with the header written last: its offset and length fields
// describe regions that do not have final positions until everything
// else has been laid out.
func Build(in *BuildInput) ([]byte, error) {
	if in.Header == nil {
		return nil, nds.Formatf("rom build requires a header template")
	}
	opts := in.Options
	if opts == nil {
		opts = &nitrofs.BuildOptions{Align: 4, Fill: 0xFF}
	}

	// Every overlay descriptor must resolve to an allocation entry
	// before a single byte is laid out.
	firstID := len(in.OverlayData)
	total := firstID + in.Tree.NumFiles()
	for _, o := range append(append([]Overlay{}, in.Arm9Overlays...), in.Arm7Overlays...) {
		if o.FileID >= uint32(total) {
			return nil, nds.Structuref("overlay %d references file id %d, image will have %d allocation entries",
				o.ID, o.FileID, total)
		}
	}
	if total > 0xFFFF {
		return nil, nds.Structuref("image would have %d allocation entries, ids are 16-bit", total)
	}

	built, err := nitrofs.Build(in.Tree, in.Source, uint16(firstID), opts)
	if err != nil {
		return nil, err
	}

	w := nds.NewWriter()
	w.Zero(HeaderRegionLen)

	region := func(b []byte) Region {
		w.Pad(regionAlign, 0)
		r := Region{Offset: uint32(w.Len()), Length: uint32(len(b))}
		w.Bytes(b)
		if len(b) == 0 {
			r.Offset = 0
		}
		return r
	}

	h := *in.Header
	arm9 := region(in.Arm9)
	h.Arm9.Offset, h.Arm9.Size = arm9.Offset, arm9.Length
	arm7 := region(in.Arm7)
	h.Arm7.Offset, h.Arm7.Size = arm7.Offset, arm7.Length

	h.FNT = region(built.FNT)

	// The allocation table is placed before the data region it
	// describes, so it is reserved now and back-patched once every
	// file's final offset is known.
	w.Pad(regionAlign, 0)
	fatOffset := w.Len()
	w.Zero(total * 8)
	h.FAT = Region{Offset: uint32(fatOffset), Length: uint32(total * 8)}

	h.Arm9Overlay = region(EncodeOverlayTable(in.Arm9Overlays))
	h.Arm7Overlay = region(EncodeOverlayTable(in.Arm7Overlays))

	// Data region: overlay members first, in id order, then the
	// packed tree image.
	w.Pad(regionAlign, 0)
	fat := make([]nds.Range, 0, total)
	for _, data := range in.OverlayData {
		w.Pad(opts.Align, opts.Fill)
		start := uint32(w.Len())
		w.Bytes(data)
		fat = append(fat, nds.Range{Start: start, End: uint32(w.Len())})
	}
	w.Pad(opts.Align, opts.Fill)
	imageBase := uint32(w.Len())
	w.Bytes(built.Image)
	for _, r := range built.FAT {
		fat = append(fat, nds.Range{Start: r.Start + imageBase, End: r.End + imageBase})
	}
	for i, r := range fat {
		w.PutU32(fatOffset+i*8, r.Start)
		w.PutU32(fatOffset+i*8+4, r.End)
	}

	h.IconOffset = 0
	if len(in.Banner) > 0 {
		banner := region(in.Banner)
		h.IconOffset = banner.Offset
	}

	h.NTRSize = uint32(w.Len())
	if h.HeaderSize == 0 {
		h.HeaderSize = HeaderRegionLen
	}
	h.LogoCRC = CRC16(h.Logo[:])
	h.HeaderCRC = h.Checksum()

	copy(w.Buffer()[:HeaderLen], h.Encode())
	return w.Buffer(), nil
}
