package image

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/rstms/nds"
	"github.com/rstms/nds/rom"
)

// Names of the auxiliary blobs a ROM extraction writes alongside the
// data tree; BuildRom consumes the same layout.
const (
	HeaderFile      = "header.bin"
	Arm9File        = "arm9.bin"
	Arm7File        = "arm7.bin"
	Arm9OverlayFile = "arm9_overlay.bin"
	Arm7OverlayFile = "arm7_overlay.bin"
	BannerFile      = "banner.bin"
	DataDir         = "data"
	OverlayDir      = "overlay"
)

// ExtractOptions bound the worker pool; zero workers means one per
// CPU.
type ExtractOptions struct {
	Workers int
}

type unit struct {
	path string
	data []byte
}

// Extract writes the container's contents under dest. Directories
// are created before any file task is scheduled; file writes then run
// on a bounded pool. One file's failure does not stop the others;
// every failure is reported in the aggregated error.
func (i *Image) Extract(dest string, opts *ExtractOptions) error {
	workers := 0
	if opts != nil {
		workers = opts.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	units, err := i.plan(dest)
	if err != nil {
		return err
	}
	log.Printf("extracting %d files to %s with %d workers\n", len(units), dest, workers)

	var g errgroup.Group
	g.SetLimit(workers)
	var mu sync.Mutex
	var failures error
	failed := 0
	for _, u := range units {
		g.Go(func() error {
			if err := afero.WriteFile(i.fs, u.path, u.data, 0644); err != nil {
				mu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("%s: %w", u.path, err))
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if failures != nil {
		return Fatal(fmt.Errorf("extracted %d of %d files: %w",
			len(units)-failed, len(units), failures))
	}
	return nil
}

// plan creates the destination directories and returns one unit of
// work per file. Units have disjoint destination paths and disjoint
// source ranges, so they need no further coordination.
func (i *Image) plan(dest string) ([]unit, error) {
	if err := i.fs.MkdirAll(dest, 0755); err != nil {
		return nil, Fatal(err)
	}

	var units []unit
	treeRoot := dest

	if i.Kind == KindROM {
		r := i.Rom
		treeRoot = filepath.Join(dest, DataDir)
		if err := i.fs.MkdirAll(treeRoot, 0755); err != nil {
			return nil, Fatal(err)
		}
		if err := i.fs.MkdirAll(filepath.Join(dest, OverlayDir), 0755); err != nil {
			return nil, Fatal(err)
		}

		headerLen := len(i.data)
		if headerLen > 0x200 {
			headerLen = 0x200
		}
		units = append(units,
			unit{filepath.Join(dest, HeaderFile), i.data[:headerLen]},
			unit{filepath.Join(dest, Arm9File), r.Arm9},
			unit{filepath.Join(dest, Arm7File), r.Arm7},
		)
		if len(r.Arm9Overlays) > 0 {
			units = append(units, unit{filepath.Join(dest, Arm9OverlayFile),
				rom.EncodeOverlayTable(r.Arm9Overlays)})
		}
		if len(r.Arm7Overlays) > 0 {
			units = append(units, unit{filepath.Join(dest, Arm7OverlayFile),
				rom.EncodeOverlayTable(r.Arm7Overlays)})
		}
		if len(r.Banner) > 0 {
			units = append(units, unit{filepath.Join(dest, BannerFile), r.Banner})
		}
		for id := 0; id < r.OverlayCount(); id++ {
			data, err := r.File(uint16(id))
			if err != nil {
				return nil, Fatal(err)
			}
			units = append(units, unit{
				filepath.Join(dest, OverlayDir, fmt.Sprintf("overlay_%04d.bin", id)),
				data,
			})
		}
	}

	t := i.Tree()
	err := t.Walk(func(path string, ref nds.NodeRef) error {
		full := filepath.Join(treeRoot, filepath.FromSlash(path))
		if t.IsDir(ref) {
			return i.fs.MkdirAll(full, 0755)
		}
		var data []byte
		var err error
		if i.Kind == KindNARC {
			data, err = i.Narc.File(ref)
		} else {
			data, err = i.Rom.File(t.FileID(ref))
		}
		if err != nil {
			return err
		}
		units = append(units, unit{full, data})
		return nil
	})
	if err != nil {
		return nil, Fatal(err)
	}
	return units, nil
}
