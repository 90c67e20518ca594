package nitrofs

import (
	"github.com/rstms/nds"
)

// fatEntrySize is the size of one file allocation table entry: a
// u32 start offset and a u32 end offset.
const fatEntrySize = 8

// DecodeFAT parses a file allocation table region into byte ranges
// indexed by file id.
func DecodeFAT(fat []byte) ([]nds.Range, error) {
	if len(fat)%fatEntrySize != 0 {
		return nil, nds.Truncatedf("file allocation table: %d bytes is not a multiple of %d",
			len(fat), fatEntrySize)
	}
	cur := nds.NewCursor(fat, "file allocation table")
	entries := make([]nds.Range, len(fat)/fatEntrySize)
	for i := range entries {
		start, err := cur.U32()
		if err != nil {
			return nil, err
		}
		end, err := cur.U32()
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, nds.Structuref("file allocation table: entry %d is inverted (start=%#x end=%#x)",
				i, start, end)
		}
		entries[i] = nds.Range{Start: start, End: end}
	}
	return entries, nil
}

// EncodeFAT serializes allocation entries in file id order.
func EncodeFAT(entries []nds.Range) []byte {
	w := nds.NewWriter()
	for _, e := range entries {
		w.U32(e.Start)
		w.U32(e.End)
	}
	return w.Buffer()
}
