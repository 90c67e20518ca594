package nds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeAddAndLookup(t *testing.T) {
	tree := NewTree()

	f, err := tree.AddFile(RootRef, "A.txt")
	require.Nil(t, err)
	sub, err := tree.AddDir(RootRef, "sub")
	require.Nil(t, err)
	b, err := tree.AddFile(sub, "B.bin")
	require.Nil(t, err)

	require.True(t, tree.IsDir(RootRef))
	require.False(t, tree.IsDir(f))
	require.True(t, tree.IsDir(sub))
	require.Equal(t, RootRef, tree.Parent(sub))
	require.Equal(t, sub, tree.Parent(b))

	got, ok := tree.Lookup(sub, "B.bin")
	require.True(t, ok)
	require.Equal(t, b, got)
	_, ok = tree.Lookup(RootRef, "B.bin")
	require.False(t, ok)

	require.Equal(t, 2, tree.NumFiles())
	require.Equal(t, 2, tree.NumDirs())
}

func TestTreeDuplicateSibling(t *testing.T) {
	tree := NewTree()
	_, err := tree.AddFile(RootRef, "same")
	require.Nil(t, err)
	_, err = tree.AddDir(RootRef, "same")
	require.ErrorIs(t, err, ErrStructure)
}

func TestTreeRejectsBadNames(t *testing.T) {
	tree := NewTree()
	_, err := tree.AddFile(RootRef, "")
	require.ErrorIs(t, err, ErrStructure)

	long := make([]byte, MaxNameLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = tree.AddDir(RootRef, string(long))
	require.ErrorIs(t, err, ErrStructure)

	f, err := tree.AddFile(RootRef, "f")
	require.Nil(t, err)
	_, err = tree.AddFile(f, "child-of-file")
	require.ErrorIs(t, err, ErrStructure)
}

func TestTreeWalkOrder(t *testing.T) {
	tree := NewTree()
	_, err := tree.AddFile(RootRef, "A.txt")
	require.Nil(t, err)
	sub, err := tree.AddDir(RootRef, "sub")
	require.Nil(t, err)
	_, err = tree.AddFile(sub, "B.bin")
	require.Nil(t, err)
	_, err = tree.AddFile(RootRef, "C.txt")
	require.Nil(t, err)

	var paths []string
	err = tree.Walk(func(path string, ref NodeRef) error {
		paths = append(paths, path)
		return nil
	})
	require.Nil(t, err)

	// Depth-first, parents before children, siblings in insertion
	// order.
	require.Equal(t, []string{"A.txt", "sub", "sub/B.bin", "C.txt"}, paths)
}
