package partition

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/fleet"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

type PruneOptions struct {
	// KeepBorder keeps foreign regions adjacent to an owned one, i.e. the halo
	// Optimize maintains.
	KeepBorder bool
}

// Prune deletes local regions owned by another server. Unlike Optimize it
// neither needs nor touches the master archive.
func (r *Runner) Prune(opts PruneOptions) (Report, error) {
	rep := Report{Operation: "prune"}
	if err := r.validate(); err != nil {
		return rep, err
	}
	fsys := r.fs()
	for _, srv := range r.Servers {
		sr, err := r.pruneServer(fsys, srv, opts)
		rep.Servers = append(rep.Servers, sr)
		if err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r *Runner) pruneServer(fsys FileSystem, srv fleet.Server, opts PruneOptions) (ServerReport, error) {
	sr := ServerReport{Server: srv.Label}
	log := r.logger().With(zap.String("server", srv.Label))
	self := srv.Owner()

	for _, category := range region.Categories {
		dir := filepath.Join(srv.WorldDir(r.LevelName), category)
		if !fsys.Exists(dir) {
			log.Warn("directory does not exist, skipping prune", zap.String("path", dir))
			sr.Warnings++
			continue
		}
		files, ok := r.scanCategory(dir, &sr)
		if !ok {
			continue
		}

		log.Info("pruning region files", zap.String("category", category))
		for _, f := range files {
			owner := r.owner(f.Coords)
			switch {
			case owner == self:
				sr.Kept++
				continue
			case owner == Unowned:
				log.Debug("region outside world bounds", zap.String("path", f.Path))
				sr.Unowned++
				continue
			case opts.KeepBorder && r.touches(f.Coords, self):
				sr.Border++
				continue
			}

			if err := fsys.Remove(f.Path); err != nil {
				return sr, fmt.Errorf("%s: remove %s: %w", srv.Label, f.Path, err)
			}
			sr.Deleted++
			if err := r.record(Action{Server: srv.Label, Category: category, Kind: ActionDelete, Path: f.Path, Region: f.Coords, Owner: owner}); err != nil {
				return sr, err
			}
		}
	}
	return sr, nil
}

// touches reports whether any neighbour of c belongs to owner.
func (r *Runner) touches(c region.Coords, owner int16) bool {
	for _, n := range c.Neighbors() {
		if r.owner(n) == owner {
			return true
		}
	}
	return false
}
