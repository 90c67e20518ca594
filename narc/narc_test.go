package narc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rstms/nds"
	"github.com/rstms/nds/nitrofs"
)

type mapSource map[nds.NodeRef][]byte

func (s mapSource) ReadFile(ref nds.NodeRef) ([]byte, error) {
	return s[ref], nil
}

func sampleArchive(t *testing.T) []byte {
	tree := nds.NewTree()
	src := mapSource{}

	a, err := tree.AddFile(nds.RootRef, "A.txt")
	require.Nil(t, err)
	src[a] = []byte("abc")
	sub, err := tree.AddDir(nds.RootRef, "sub")
	require.Nil(t, err)
	b, err := tree.AddFile(sub, "B.bin")
	require.Nil(t, err)
	src[b] = []byte{}

	data, err := Build(tree, src, nil)
	require.Nil(t, err)
	return data
}

func TestRoundTrip(t *testing.T) {
	data := sampleArchive(t)

	// The outer header declares exactly the bytes emitted.
	require.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(data[8:]))

	a, err := Decode(data)
	require.Nil(t, err)

	tree := a.Tree()
	require.Equal(t, 2, tree.NumFiles())

	ref, ok := tree.Lookup(nds.RootRef, "A.txt")
	require.True(t, ok)
	content, err := a.File(ref)
	require.Nil(t, err)
	require.Equal(t, []byte("abc"), content)

	sub, ok := tree.Lookup(nds.RootRef, "sub")
	require.True(t, ok)
	bin, ok := tree.Lookup(sub, "B.bin")
	require.True(t, ok)
	content, err = a.File(bin)
	require.Nil(t, err)
	require.Len(t, content, 0)

	// Rebuilding the decoded archive reproduces it byte for byte.
	rebuilt, err := Build(tree, &nitrofs.BufferSource{Tree: tree, Data: a.Image}, nil)
	require.Nil(t, err)
	require.Equal(t, data, rebuilt)
}

func TestDecodeBadMagic(t *testing.T) {
	data := sampleArchive(t)
	data[0] = 'X'
	_, err := Decode(data)
	require.ErrorIs(t, err, nds.ErrFormat)
}

func TestDecodeSizeMismatch(t *testing.T) {
	data := sampleArchive(t)
	_, err := Decode(data[:len(data)-1])
	require.ErrorIs(t, err, nds.ErrFormat)
}

func TestDecodeBadChunkMagic(t *testing.T) {
	data := sampleArchive(t)
	// First chunk begins right after the 16-byte outer header.
	data[16] = 'X'
	_, err := Decode(data)
	require.ErrorIs(t, err, nds.ErrFormat)
}

func TestDecodeTruncatedChunk(t *testing.T) {
	data := sampleArchive(t)
	// Inflate the file-allocation chunk's declared length beyond the
	// end of the archive.
	binary.LittleEndian.PutUint32(data[20:], 0xFFFF)
	_, err := Decode(data)
	require.Error(t, err)
	require.ErrorIs(t, err, nds.ErrTruncated)
}
