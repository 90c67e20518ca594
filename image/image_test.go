package image

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/rstms/nds/rom"
)

func testHeaderBytes() []byte {
	h := &rom.Header{}
	copy(h.Title[:], "PIPELINE")
	copy(h.GameCode[:], "APIP")
	copy(h.MakerCode[:], "01")
	h.Arm9 = rom.Code{Entry: 0x02000000, Load: 0x02000000}
	h.Arm7 = rom.Code{Entry: 0x02380000, Load: 0x02380000}
	for i := range h.Logo {
		h.Logo[i] = byte(i)
	}
	return h.Encode()
}

func testBanner() []byte {
	banner := make([]byte, 0x840)
	banner[0] = 1
	banner[0x40] = 0x55
	return banner
}

// sourceFs lays out a directory the way Extract writes one.
func sourceFs(t *testing.T) afero.Fs {
	fsys := afero.NewMemMapFs()
	write := func(name string, data []byte) {
		require.Nil(t, fsys.MkdirAll(filepath.Dir(name), 0755))
		require.Nil(t, afero.WriteFile(fsys, name, data, 0644))
	}
	write("src/header.bin", testHeaderBytes())
	write("src/arm9.bin", []byte("ARM9-CODE"))
	write("src/arm7.bin", []byte("ARM7-CODE"))
	write("src/arm9_overlay.bin", rom.EncodeOverlayTable([]rom.Overlay{
		{ID: 0, RAMAddress: 0x02000000, RAMSize: 4, FileID: 0, Packed: 4},
	}))
	write("src/banner.bin", testBanner())
	write("src/overlay/overlay_0000.bin", []byte("OVL0"))
	write("src/data/A.txt", []byte("abc"))
	write("src/data/sub/B.bin", nil)
	return fsys
}

func TestBuildRomAndExtract(t *testing.T) {
	fsys := sourceFs(t)
	require.Nil(t, BuildRom(fsys, "src", "out.nds", nil))

	data, err := afero.ReadFile(fsys, "out.nds")
	require.Nil(t, err)

	img, err := NewImage("out.nds", data)
	require.Nil(t, err)
	require.Equal(t, KindROM, img.Kind)
	img.SetFs(fsys)

	records, err := img.ScanFiles()
	require.Nil(t, err)
	require.Len(t, records, 3) // A.txt, sub, sub/B.bin

	require.Nil(t, img.Extract("ext", &ExtractOptions{Workers: 2}))

	content, err := afero.ReadFile(fsys, filepath.Join("ext", "data", "A.txt"))
	require.Nil(t, err)
	require.Equal(t, []byte("abc"), content)

	content, err = afero.ReadFile(fsys, filepath.Join("ext", "data", "sub", "B.bin"))
	require.Nil(t, err)
	require.Len(t, content, 0)

	content, err = afero.ReadFile(fsys, filepath.Join("ext", "arm9.bin"))
	require.Nil(t, err)
	require.Equal(t, []byte("ARM9-CODE"), content)

	content, err = afero.ReadFile(fsys, filepath.Join("ext", "overlay", "overlay_0000.bin"))
	require.Nil(t, err)
	require.Equal(t, []byte("OVL0"), content)

	content, err = afero.ReadFile(fsys, filepath.Join("ext", "header.bin"))
	require.Nil(t, err)
	require.Len(t, content, 0x200)

	content, err = afero.ReadFile(fsys, filepath.Join("ext", "banner.bin"))
	require.Nil(t, err)
	require.Equal(t, testBanner(), content)

	// Building from the extracted tree reproduces the image byte for
	// byte.
	require.Nil(t, BuildRom(fsys, "ext", "out2.nds", nil))
	rebuilt, err := afero.ReadFile(fsys, "out2.nds")
	require.Nil(t, err)
	require.Equal(t, data, rebuilt)
}

func TestImageInfo(t *testing.T) {
	fsys := sourceFs(t)
	require.Nil(t, BuildRom(fsys, "src", "out.nds", nil))
	data, err := afero.ReadFile(fsys, "out.nds")
	require.Nil(t, err)

	img, err := NewImage("out.nds", data)
	require.Nil(t, err)

	info := img.Info()
	require.Equal(t, "rom", info["kind"])
	require.Equal(t, "PIPELINE", info["title"])
	require.Equal(t, 2, info["files"])
}

// failFs denies creation of one file by base name, simulating a
// per-file permission failure.
type failFs struct {
	afero.Fs
	deny string
}

func (f *failFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.Base(name) == f.deny {
		return nil, fmt.Errorf("permission denied: %s", name)
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestExtractAggregatesFailures(t *testing.T) {
	fsys := sourceFs(t)
	require.Nil(t, BuildRom(fsys, "src", "out.nds", nil))
	data, err := afero.ReadFile(fsys, "out.nds")
	require.Nil(t, err)

	img, err := NewImage("out.nds", data)
	require.Nil(t, err)
	img.SetFs(&failFs{Fs: fsys, deny: "A.txt"})

	err = img.Extract("ext", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "A.txt")
	// header, arm9, arm7, overlay table, banner, overlay member,
	// A.txt, B.bin: eight units, one failed.
	require.Contains(t, err.Error(), "7 of 8")

	// The failure did not stop the rest of the batch.
	content, err := afero.ReadFile(fsys, filepath.Join("ext", "data", "sub", "B.bin"))
	require.Nil(t, err)
	require.Len(t, content, 0)
	_, err = afero.ReadFile(fsys, filepath.Join("ext", "arm9.bin"))
	require.Nil(t, err)
}

func TestNarcBuildAndExtract(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.Nil(t, fsys.MkdirAll("tree/sub", 0755))
	require.Nil(t, afero.WriteFile(fsys, "tree/A.txt", []byte("abc"), 0644))
	require.Nil(t, afero.WriteFile(fsys, "tree/sub/B.bin", nil, 0644))

	require.Nil(t, BuildNarc(fsys, "tree", "out.narc", nil))
	data, err := afero.ReadFile(fsys, "out.narc")
	require.Nil(t, err)

	img, err := NewImage("out.narc", data)
	require.Nil(t, err)
	require.Equal(t, KindNARC, img.Kind)
	img.SetFs(fsys)

	require.Nil(t, img.Extract("ext", nil))
	content, err := afero.ReadFile(fsys, filepath.Join("ext", "A.txt"))
	require.Nil(t, err)
	require.Equal(t, []byte("abc"), content)

	// Rebuild from the extracted tree: byte identical.
	require.Nil(t, BuildNarc(fsys, "ext", "out2.narc", nil))
	rebuilt, err := afero.ReadFile(fsys, "out2.narc")
	require.Nil(t, err)
	require.Equal(t, data, rebuilt)
}

func TestOpenImageMapsFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.Nil(t, fsys.MkdirAll("tree", 0755))
	require.Nil(t, afero.WriteFile(fsys, "tree/A.txt", []byte("abc"), 0644))
	require.Nil(t, BuildNarc(fsys, "tree", "out.narc", nil))
	data, err := afero.ReadFile(fsys, "out.narc")
	require.Nil(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.narc")
	require.Nil(t, os.WriteFile(path, data, 0644))

	img, err := OpenImage(path)
	require.Nil(t, err)
	require.Equal(t, KindNARC, img.Kind)
	require.Equal(t, 1, img.Tree().NumFiles())
	require.Nil(t, img.Close())
}

func TestOpenImageMissing(t *testing.T) {
	_, err := OpenImage(filepath.Join(t.TempDir(), "nope.nds"))
	require.Error(t, err)
}
