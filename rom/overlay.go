package rom

import (
	"github.com/rstms/nds"
)

// OverlayDescSize is the size of one overlay table entry.
const OverlayDescSize = 32

const (
	packedSizeMask = 0x00FFFFFF
	packedCompFlag = 1 << 24
)

// Overlay describes one relocatable code segment and the file id of
// its data within the embedded filesystem's allocation table.
type Overlay struct {
	ID              uint32
	RAMAddress      uint32
	RAMSize         uint32
	BSSSize         uint32
	StaticInitStart uint32
	StaticInitEnd   uint32
	FileID          uint32

	// Packed holds the compressed size in its low 24 bits and the
	// compression flag in bit 24. Use CompressedSize and
	// IsCompressed instead of masking at call sites.
	Packed uint32
}

func (o Overlay) CompressedSize() uint32 {
	return o.Packed & packedSizeMask
}

func (o Overlay) IsCompressed() bool {
	return o.Packed&packedCompFlag != 0
}

// DecodeOverlayTable parses a flat overlay table region; the entry
// count is the region length divided by the descriptor size.
func DecodeOverlayTable(data []byte) ([]Overlay, error) {
	if len(data)%OverlayDescSize != 0 {
		return nil, nds.Truncatedf("overlay table: %d bytes is not a multiple of %d",
			len(data), OverlayDescSize)
	}
	cur := nds.NewCursor(data, "overlay table")
	table := make([]Overlay, len(data)/OverlayDescSize)
	for i := range table {
		o := &table[i]
		for _, p := range []*uint32{
			&o.ID, &o.RAMAddress, &o.RAMSize, &o.BSSSize,
			&o.StaticInitStart, &o.StaticInitEnd, &o.FileID, &o.Packed,
		} {
			v, err := cur.U32()
			if err != nil {
				return nil, err
			}
			*p = v
		}
	}
	return table, nil
}

// EncodeOverlayTable serializes overlay descriptors in table order.
func EncodeOverlayTable(table []Overlay) []byte {
	w := nds.NewWriter()
	for _, o := range table {
		w.U32(o.ID)
		w.U32(o.RAMAddress)
		w.U32(o.RAMSize)
		w.U32(o.BSSSize)
		w.U32(o.StaticInitStart)
		w.U32(o.StaticInitEnd)
		w.U32(o.FileID)
		w.U32(o.Packed)
	}
	return w.Buffer()
}
