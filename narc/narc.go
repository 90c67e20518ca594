// Package narc reads and writes Nitro Archives, the standalone
// chunked container that reuses the ROM's file name table and file
// allocation table layout.
package narc

import (
	"bytes"

	"github.com/rstms/nds"
	"github.com/rstms/nds/nitrofs"
)

var (
	magic     = []byte("NARC")
	magicBTAF = []byte("BTAF")
	magicBTNF = []byte("BTNF")
	magicGMIF = []byte("GMIF")
)

const (
	byteOrderMark = 0xFFFE
	version       = 0x0100
	headerSize    = 0x10
	chunkCount    = 3

	chunkHeaderSize = 8
)

// Archive is a decoded Nitro Archive. File ranges on the tree index
// into Image, the payload of the file image chunk.
type Archive struct {
	FS    *nitrofs.FileSystem
	Image []byte
}

// Tree returns the archive's directory tree.
func (a *Archive) Tree() *nds.Tree {
	return a.FS.Tree
}

// File returns a view of one file's contents.
func (a *Archive) File(ref nds.NodeRef) ([]byte, error) {
	src := nitrofs.BufferSource{Tree: a.FS.Tree, Data: a.Image}
	return src.ReadFile(ref)
}

// Decode parses a NARC image. The outer header and each chunk header
// are validated against the actual data before the embedded
// filesystem is decoded.
func Decode(data []byte) (*Archive, error) {
	cur := nds.NewCursor(data, "archive header")
	m, err := cur.Bytes(4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(m, magic) {
		return nil, nds.Formatf("archive magic %q, want %q", m, magic)
	}
	bom, err := cur.U16()
	if err != nil {
		return nil, err
	}
	if bom != byteOrderMark {
		return nil, nds.Formatf("archive byte order mark %#x, want %#x", bom, byteOrderMark)
	}
	if _, err := cur.U16(); err != nil { // version
		return nil, err
	}
	total, err := cur.U32()
	if err != nil {
		return nil, err
	}
	if int64(total) != int64(len(data)) {
		return nil, nds.Formatf("archive declares %d bytes, have %d", total, len(data))
	}
	hdrSize, err := cur.U16()
	if err != nil {
		return nil, err
	}
	if hdrSize != headerSize {
		return nil, nds.Formatf("archive header size %d, want %d", hdrSize, headerSize)
	}
	chunks, err := cur.U16()
	if err != nil {
		return nil, err
	}
	if chunks != chunkCount {
		return nil, nds.Formatf("archive declares %d chunks, want %d", chunks, chunkCount)
	}

	fatChunk, err := readChunk(cur, magicBTAF)
	if err != nil {
		return nil, err
	}
	fntChunk, err := readChunk(cur, magicBTNF)
	if err != nil {
		return nil, err
	}
	image, err := readChunk(cur, magicGMIF)
	if err != nil {
		return nil, err
	}

	// The allocation chunk prefixes the table with its entry count.
	fatCur := nds.NewCursor(fatChunk, "file allocation chunk")
	fileCount, err := fatCur.U16()
	if err != nil {
		return nil, err
	}
	if err := fatCur.Skip(2); err != nil { // reserved
		return nil, err
	}
	fat, err := fatCur.Bytes(int(fileCount) * 8)
	if err != nil {
		return nil, err
	}

	fs, err := nitrofs.Decode(fntChunk, fat)
	if err != nil {
		return nil, err
	}
	for _, r := range fs.FAT {
		if int64(r.End) > int64(len(image)) {
			return nil, nds.Structuref("file range [%#x, %#x) outside image chunk of %d bytes",
				r.Start, r.End, len(image))
		}
	}
	return &Archive{FS: fs, Image: image}, nil
}

func readChunk(cur *nds.Cursor, want []byte) ([]byte, error) {
	m, err := cur.Bytes(4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(m, want) {
		return nil, nds.Formatf("chunk magic %q, want %q", m, want)
	}
	size, err := cur.U32()
	if err != nil {
		return nil, err
	}
	if size < chunkHeaderSize {
		return nil, nds.Formatf("chunk %q declares %d bytes, less than its own header", want, size)
	}
	return cur.Bytes(int(size) - chunkHeaderSize)
}

// Build serializes a tree as a NARC image. Re-decoding the output
// yields an identical tree and identical file contents.
func Build(t *nds.Tree, src nitrofs.Source, opts *nitrofs.BuildOptions) ([]byte, error) {
	built, err := nitrofs.Build(t, src, 0, opts)
	if err != nil {
		return nil, err
	}

	w := nds.NewWriter()
	w.Bytes(magic)
	w.U16(byteOrderMark)
	w.U16(version)
	totalAt := w.Len()
	w.Zero(4)
	w.U16(headerSize)
	w.U16(chunkCount)

	writeChunk(w, magicBTAF, func(w *nds.Writer) {
		w.U16(uint16(len(built.FAT)))
		w.U16(0)
		w.Bytes(nitrofs.EncodeFAT(built.FAT))
	})
	writeChunk(w, magicBTNF, func(w *nds.Writer) {
		w.Bytes(built.FNT)
	})
	writeChunk(w, magicGMIF, func(w *nds.Writer) {
		w.Bytes(built.Image)
	})

	w.PutU32(totalAt, uint32(w.Len()))
	return w.Buffer(), nil
}

// writeChunk emits a chunk header, runs body, pads the payload to a
// word boundary, and back-patches the chunk's declared length.
func writeChunk(w *nds.Writer, magic []byte, body func(w *nds.Writer)) {
	start := w.Len()
	w.Bytes(magic)
	sizeAt := w.Len()
	w.Zero(4)
	body(w)
	w.Pad(4, 0xFF)
	w.PutU32(sizeAt, uint32(w.Len()-start))
}
