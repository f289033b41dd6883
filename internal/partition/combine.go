package partition

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/fleet"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

// Combine rebuilds the master archive from scratch: the archive is wiped, the
// first server's level.dat is copied in, and every server contributes the
// region files it owns. Local files are never modified.
func (r *Runner) Combine() (Report, error) {
	rep := Report{Operation: "combine"}
	if err := r.validate(); err != nil {
		return rep, err
	}
	fsys := r.fs()
	layout := r.layout()

	if fsys.Exists(layout.Root) {
		if err := fsys.RemoveAll(layout.Root); err != nil {
			return rep, fmt.Errorf("clean combined directory: %w", err)
		}
	}
	if err := fsys.MkdirAll(layout.Root); err != nil {
		return rep, fmt.Errorf("create combined directory: %w", err)
	}

	for _, srv := range r.Servers {
		sr, err := r.combineServer(fsys, srv)
		rep.Servers = append(rep.Servers, sr)
		if err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r *Runner) combineServer(fsys FileSystem, srv fleet.Server) (ServerReport, error) {
	sr := ServerReport{Server: srv.Label}
	log := r.logger().With(zap.String("server", srv.Label))
	layout := r.layout()
	worldDir := srv.WorldDir(r.LevelName)
	self := srv.Owner()

	if self == 0 {
		src := filepath.Join(worldDir, region.LevelFile)
		if fsys.Exists(src) {
			log.Info("copying level.dat")
			if err := fsys.CopyFile(src, layout.LevelPath()); err != nil {
				return sr, fmt.Errorf("%s: copy level.dat: %w", srv.Label, err)
			}
			if err := r.record(Action{Server: srv.Label, Kind: ActionLevel, Path: src, Owner: self}); err != nil {
				return sr, err
			}
		} else {
			log.Warn("level.dat not found", zap.String("path", src))
			sr.Warnings++
		}
	}

	for _, category := range region.Categories {
		outDir := layout.CategoryDir(category)
		if err := fsys.MkdirAll(outDir); err != nil {
			return sr, fmt.Errorf("create %s: %w", outDir, err)
		}

		dir := filepath.Join(worldDir, category)
		if !fsys.Exists(dir) {
			log.Warn("directory does not exist, skipping sync", zap.String("path", dir))
			sr.Warnings++
			continue
		}

		files, ok := r.scanCategory(dir, &sr)
		if !ok {
			continue
		}
		log.Info("copying region files", zap.String("category", category), zap.Int("candidates", len(files)))
		for _, f := range files {
			owner := r.owner(f.Coords)
			switch {
			case owner == Unowned:
				log.Debug("region outside world bounds", zap.String("path", f.Path))
				sr.Unowned++
				continue
			case owner != self:
				continue
			}

			dst := filepath.Join(outDir, f.Name)
			if err := fsys.CopyFile(f.Path, dst); err != nil {
				return sr, fmt.Errorf("%s: archive %s: %w", srv.Label, f.Path, err)
			}
			sr.Archived++
			if err := r.record(Action{Server: srv.Label, Category: category, Kind: ActionArchive, Path: f.Path, Region: f.Coords, Owner: owner}); err != nil {
				return sr, err
			}
		}
	}
	return sr, nil
}
