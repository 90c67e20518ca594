package nitrofs

import (
	"github.com/rstms/nds"
)

// RootID is the directory id of the root; subsequent directories are
// numbered upwards from it in table order.
const RootID uint16 = 0xF000

// dirRecordSize is the size of one main-table record: a u32 sub-table
// offset, a u16 first file id, and a u16 that is the parent id for
// child directories but the total directory count on the root record.
const dirRecordSize = 8

const dirNameFlag = 0x80

type dirRecord struct {
	subTableOffset uint32
	firstFileID    uint16
	parentOrCount  uint16
}

// dirCount is only meaningful on the root record (table index 0).
func (r dirRecord) dirCount() uint16 {
	return r.parentOrCount
}

// parentID is only meaningful on non-root records.
func (r dirRecord) parentID() uint16 {
	return r.parentOrCount
}

// FileSystem is the result of decoding an FNT/FAT pair. FAT holds
// every allocation entry, including ids below FirstID, which belong
// to overlay members rather than named files.
type FileSystem struct {
	Tree    *nds.Tree
	FAT     []nds.Range
	FirstID uint16
}

// Decode parses a file name table plus file allocation table into a
// directory tree. Byte ranges on file nodes index into whatever data
// region the container pairs with the FAT; bounds against that region
// are the container's concern.
func Decode(fnt, fat []byte) (*FileSystem, error) {
	alloc, err := DecodeFAT(fat)
	if err != nil {
		return nil, err
	}

	cur := nds.NewCursor(fnt, "file name table")
	if err := cur.Seek(6); err != nil {
		return nil, err
	}
	count, err := cur.U16()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nds.Structuref("file name table: zero directory count on root record")
	}
	if int(count)*dirRecordSize > len(fnt) {
		return nil, nds.Truncatedf("file name table: %d directory records need %d bytes, have %d",
			count, int(count)*dirRecordSize, len(fnt))
	}

	records := make([]dirRecord, count)
	if err := cur.Seek(0); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].subTableOffset, err = cur.U32(); err != nil {
			return nil, err
		}
		if records[i].firstFileID, err = cur.U16(); err != nil {
			return nil, err
		}
		if records[i].parentOrCount, err = cur.U16(); err != nil {
			return nil, err
		}
	}

	fs := &FileSystem{
		Tree:    nds.NewTree(),
		FAT:     alloc,
		FirstID: records[0].firstFileID,
	}
	visited := make([]bool, count)
	visited[0] = true
	if err := fs.populate(fnt, records, visited, 0, nds.RootRef); err != nil {
		return nil, err
	}
	for i, seen := range visited {
		if !seen {
			return nil, nds.Structuref("file name table: directory %#x is not referenced by any sub-table",
				RootID+uint16(i))
		}
	}
	return fs, nil
}

// populate reads one directory's sub-table, appending its entries to
// the tree and descending into child directories.
func (fs *FileSystem) populate(fnt []byte, records []dirRecord, visited []bool, index int, ref nds.NodeRef) error {
	rec := records[index]
	cur := nds.NewCursor(fnt, "directory sub-table")
	if err := cur.Seek(int(rec.subTableOffset)); err != nil {
		return nds.Structuref("directory %#x: sub-table offset %#x outside name table of %d bytes",
			RootID+uint16(index), rec.subTableOffset, len(fnt))
	}

	fileID := rec.firstFileID
	for {
		length, err := cur.U8()
		if err != nil {
			return err
		}
		if length == 0 {
			return nil
		}
		isDir := length&dirNameFlag != 0
		nameLen := int(length &^ dirNameFlag)
		if nameLen == 0 {
			return nds.Structuref("directory %#x: sub-table entry with empty name",
				RootID+uint16(index))
		}
		name, err := cur.Bytes(nameLen)
		if err != nil {
			return err
		}

		if isDir {
			childID, err := cur.U16()
			if err != nil {
				return err
			}
			childIndex := int(childID) - int(RootID)
			if childIndex <= 0 || childIndex >= len(records) {
				return nds.Structuref("directory %#x: child directory id %#x out of range [%#x, %#x]",
					RootID+uint16(index), childID, RootID+1, RootID+uint16(len(records))-1)
			}
			if visited[childIndex] {
				return nds.Structuref("directory %#x is referenced by more than one sub-table", childID)
			}
			if records[childIndex].parentID() != RootID+uint16(index) {
				return nds.Structuref("directory %#x: parent id %#x does not match referencing directory %#x",
					childID, records[childIndex].parentID(), RootID+uint16(index))
			}
			visited[childIndex] = true
			childRef, err := fs.Tree.AddDir(ref, string(name))
			if err != nil {
				return err
			}
			if err := fs.populate(fnt, records, visited, childIndex, childRef); err != nil {
				return err
			}
		} else {
			if int(fileID) >= len(fs.FAT) {
				return nds.Structuref("directory %#x: file id %d exceeds allocation table of %d entries",
					RootID+uint16(index), fileID, len(fs.FAT))
			}
			fileRef, err := fs.Tree.AddFile(ref, string(name))
			if err != nil {
				return err
			}
			fs.Tree.SetFileID(fileRef, fileID)
			fs.Tree.SetData(fileRef, fs.FAT[fileID])
			fileID++
		}
	}
}
