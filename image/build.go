package image

import (
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/rstms/nds"
	"github.com/rstms/nds/narc"
	"github.com/rstms/nds/nitrofs"
	"github.com/rstms/nds/rom"
)

// aferoSource feeds file contents to the codecs lazily, one file at a
// time in emit order.
type aferoSource struct {
	fs    afero.Fs
	paths map[nds.NodeRef]string
}

func (s *aferoSource) ReadFile(ref nds.NodeRef) ([]byte, error) {
	return afero.ReadFile(s.fs, s.paths[ref])
}

// scanTree builds an in-memory tree from a source directory. Only
// names and sizes are gathered here; contents are read during
// serialization.
func scanTree(fsys afero.Fs, root string) (*nds.Tree, nitrofs.Source, error) {
	t := nds.NewTree()
	refs := map[string]nds.NodeRef{root: nds.RootRef}
	paths := map[nds.NodeRef]string{}

	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		parent, ok := refs[filepath.Dir(path)]
		if !ok {
			return fmt.Errorf("walk visited %s before its parent", path)
		}
		name := filepath.Base(path)
		if info.IsDir() {
			ref, err := t.AddDir(parent, name)
			if err != nil {
				return err
			}
			refs[path] = ref
			return nil
		}
		ref, err := t.AddFile(parent, name)
		if err != nil {
			return err
		}
		paths[ref] = path
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return t, &aferoSource{fs: fsys, paths: paths}, nil
}

// writeAtomic stages output beside the destination and renames it
// into place only when the build has fully succeeded, so a failed
// build never leaves a partial image behind.
func writeAtomic(fsys afero.Fs, filename string, data []byte) error {
	tmp := filename + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, 0644); err != nil {
		return err
	}
	if err := fsys.Rename(tmp, filename); err != nil {
		fsys.Remove(tmp)
		return err
	}
	return nil
}

// BuildRom assembles a ROM image from a directory laid out the way
// Extract writes one: header.bin, arm9.bin, arm7.bin, optional
// overlay tables and banner, overlay/ members, and the data/ tree.
func BuildRom(fsys afero.Fs, srcDir, dstFile string, opts *nitrofs.BuildOptions) error {
	headerData, err := afero.ReadFile(fsys, filepath.Join(srcDir, HeaderFile))
	if err != nil {
		return Fatal(err)
	}
	header, err := rom.DecodeHeader(headerData)
	if err != nil {
		return Fatal(err)
	}
	arm9, err := afero.ReadFile(fsys, filepath.Join(srcDir, Arm9File))
	if err != nil {
		return Fatal(err)
	}
	arm7, err := afero.ReadFile(fsys, filepath.Join(srcDir, Arm7File))
	if err != nil {
		return Fatal(err)
	}

	readOverlayTable := func(name string) ([]rom.Overlay, error) {
		ok, err := afero.Exists(fsys, filepath.Join(srcDir, name))
		if err != nil || !ok {
			return nil, err
		}
		data, err := afero.ReadFile(fsys, filepath.Join(srcDir, name))
		if err != nil {
			return nil, err
		}
		return rom.DecodeOverlayTable(data)
	}
	ovl9, err := readOverlayTable(Arm9OverlayFile)
	if err != nil {
		return Fatal(err)
	}
	ovl7, err := readOverlayTable(Arm7OverlayFile)
	if err != nil {
		return Fatal(err)
	}

	var banner []byte
	if ok, _ := afero.Exists(fsys, filepath.Join(srcDir, BannerFile)); ok {
		banner, err = afero.ReadFile(fsys, filepath.Join(srcDir, BannerFile))
		if err != nil {
			return Fatal(err)
		}
	}

	overlayData, err := readOverlayMembers(fsys, filepath.Join(srcDir, OverlayDir))
	if err != nil {
		return Fatal(err)
	}

	tree, source, err := scanTree(fsys, filepath.Join(srcDir, DataDir))
	if err != nil {
		return Fatal(err)
	}

	data, err := rom.Build(&rom.BuildInput{
		Header:       header,
		Arm9:         arm9,
		Arm7:         arm7,
		Arm9Overlays: ovl9,
		Arm7Overlays: ovl7,
		OverlayData:  overlayData,
		Tree:         tree,
		Source:       source,
		Banner:       banner,
		Options:      opts,
	})
	if err != nil {
		return Fatal(err)
	}
	if err := writeAtomic(fsys, dstFile, data); err != nil {
		return Fatal(err)
	}
	log.Printf("wrote %s: %d bytes\n", dstFile, len(data))
	return nil
}

// readOverlayMembers loads overlay_NNNN.bin files in id order. Ids
// must be dense: a gap means the allocation table cannot be
// reconstructed.
func readOverlayMembers(fsys afero.Fs, dir string) ([][]byte, error) {
	ok, err := afero.DirExists(fsys, dir)
	if err != nil || !ok {
		return nil, err
	}
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, info := range infos {
		if !info.IsDir() && strings.HasPrefix(info.Name(), "overlay_") {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	members := make([][]byte, len(names))
	for i, name := range names {
		want := fmt.Sprintf("overlay_%04d.bin", i)
		if name != want {
			return nil, fmt.Errorf("overlay member %s out of sequence, want %s", name, want)
		}
		members[i], err = afero.ReadFile(fsys, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
	}
	return members, nil
}

// BuildNarc assembles an archive from a plain directory tree.
func BuildNarc(fsys afero.Fs, srcDir, dstFile string, opts *nitrofs.BuildOptions) error {
	tree, source, err := scanTree(fsys, srcDir)
	if err != nil {
		return Fatal(err)
	}
	data, err := narc.Build(tree, source, opts)
	if err != nil {
		return Fatal(err)
	}
	if err := writeAtomic(fsys, dstFile, data); err != nil {
		return Fatal(err)
	}
	log.Printf("wrote %s: %d bytes\n", dstFile, len(data))
	return nil
}
