package nitrofs

import (
	"github.com/rstms/nds"
)

// maxDirs bounds the directory table: ids run from 0xF000 to 0xFFFF.
const maxDirs = 0x1000

// Source supplies file contents while a tree is being serialized.
// Contents are requested lazily, one file at a time, in file id order.
type Source interface {
	ReadFile(ref nds.NodeRef) ([]byte, error)
}

// BufferSource reads file contents out of an in-memory data region
// using the byte ranges recorded on the tree's file nodes. It is the
// Source used when re-serializing a parsed container.
type BufferSource struct {
	Tree *nds.Tree
	Data []byte
}

func (s *BufferSource) ReadFile(ref nds.NodeRef) ([]byte, error) {
	r := s.Tree.Data(ref)
	if int64(r.End) > int64(len(s.Data)) {
		return nil, nds.Truncatedf("file data: range [%#x, %#x) outside region of %d bytes",
			r.Start, r.End, len(s.Data))
	}
	return s.Data[r.Start:r.End], nil
}

// BuildOptions control how file contents are packed into the data
// region. The alignment constant varies between format revisions, so
// it is configurable; the defaults match the common NTR layout.
type BuildOptions struct {
	// Align is the boundary each file's start offset is padded to.
	Align int
	// Fill is the padding byte written between files.
	Fill byte
}

var defaultBuildOptions = BuildOptions{Align: 4, Fill: 0xFF}

// Built is the serialized form of a tree: the name table, the
// allocation entries for the tree's files (offsets relative to the
// start of Image), and the packed data region.
type Built struct {
	FNT     []byte
	FAT     []nds.Range
	Image   []byte
	FirstID uint16
}

// Build serializes a tree. Directory ids are assigned breadth-first,
// root first, matching the order Decode discovers them in; file ids
// are assigned in the same per-directory scan order starting at
// firstID. Re-decoding the output reproduces the tree exactly.
func Build(t *nds.Tree, src Source, firstID uint16, opts *BuildOptions) (*Built, error) {
	if opts == nil {
		opts = &defaultBuildOptions
	}

	// Breadth-first directory order defines the id of every
	// directory and, through the per-directory scan, of every file.
	dirs := []nds.NodeRef{nds.RootRef}
	for i := 0; i < len(dirs); i++ {
		for _, c := range t.Children(dirs[i]) {
			if t.IsDir(c) {
				dirs = append(dirs, c)
			}
		}
	}
	if len(dirs) > maxDirs {
		return nil, nds.Structuref("tree has %d directories, table holds at most %d", len(dirs), maxDirs)
	}
	dirID := make(map[nds.NodeRef]uint16, len(dirs))
	for i, d := range dirs {
		dirID[d] = RootID + uint16(i)
	}

	var files []nds.NodeRef
	firstFile := make([]uint16, len(dirs))
	nextID := firstID
	for i, d := range dirs {
		firstFile[i] = nextID
		for _, c := range t.Children(d) {
			if !t.IsDir(c) {
				t.SetFileID(c, nextID)
				files = append(files, c)
				nextID++
				if nextID == 0 && len(files) > 0 {
					return nil, nds.Structuref("file id space exhausted after %d files", len(files))
				}
			}
		}
	}

	// Pass one: size each sub-table so offsets can be assigned
	// before any entry is emitted.
	mainSize := len(dirs) * dirRecordSize
	offsets := make([]int, len(dirs))
	next := mainSize
	for i, d := range dirs {
		offsets[i] = next
		size := 1 // zero terminator
		for _, c := range t.Children(d) {
			size += 1 + len(t.Name(c))
			if t.IsDir(c) {
				size += 2
			}
		}
		next += size
	}

	// Pass two: emit the main table, then every sub-table in id
	// order.
	w := nds.NewWriter()
	for i, d := range dirs {
		w.U32(uint32(offsets[i]))
		w.U16(firstFile[i])
		if i == 0 {
			w.U16(uint16(len(dirs)))
		} else {
			w.U16(dirID[t.Parent(d)])
		}
	}
	for _, d := range dirs {
		for _, c := range t.Children(d) {
			name := t.Name(c)
			if t.IsDir(c) {
				w.U8(uint8(len(name)) | dirNameFlag)
				w.Bytes([]byte(name))
				w.U16(dirID[c])
			} else {
				w.U8(uint8(len(name)))
				w.Bytes([]byte(name))
			}
		}
		w.U8(0)
	}
	fnt := w.Buffer()

	// Concatenate file contents in id order, aligning each start
	// offset and recording the resulting ranges.
	img := nds.NewWriter()
	fat := make([]nds.Range, len(files))
	for i, f := range files {
		data, err := src.ReadFile(f)
		if err != nil {
			return nil, err
		}
		img.Pad(opts.Align, opts.Fill)
		start := uint32(img.Len())
		img.Bytes(data)
		fat[i] = nds.Range{Start: start, End: uint32(img.Len())}
		t.SetData(f, fat[i])
	}

	return &Built{
		FNT:     fnt,
		FAT:     fat,
		Image:   img.Buffer(),
		FirstID: firstID,
	}, nil
}
