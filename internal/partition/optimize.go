package partition

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/fleet"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

// Optimize trims every server down to the regions it owns plus a one-region
// halo, which is refilled from the master archive. Combine must have run.
func (r *Runner) Optimize() (Report, error) {
	rep := Report{Operation: "optimize"}
	if err := r.validate(); err != nil {
		return rep, err
	}
	fsys := r.fs()
	if !fsys.Exists(r.layout().Root) {
		return rep, fmt.Errorf("%w: %s", ErrArchiveMissing, r.layout().Root)
	}

	for _, srv := range r.Servers {
		sr, err := r.optimizeServer(fsys, srv)
		rep.Servers = append(rep.Servers, sr)
		if err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r *Runner) optimizeServer(fsys FileSystem, srv fleet.Server) (ServerReport, error) {
	sr := ServerReport{Server: srv.Label}
	log := r.logger().With(zap.String("server", srv.Label))
	layout := r.layout()
	self := srv.Owner()

	for _, category := range region.Categories {
		masterDir := layout.CategoryDir(category)
		if !fsys.Exists(masterDir) {
			log.Warn("directory does not exist, skipping optimization", zap.String("path", masterDir))
			sr.Warnings++
			continue
		}
		localDir := filepath.Join(srv.WorldDir(r.LevelName), category)
		if !fsys.Exists(localDir) {
			log.Warn("directory does not exist, skipping optimization", zap.String("path", localDir))
			sr.Warnings++
			continue
		}

		files, ok := r.scanCategory(localDir, &sr)
		if !ok {
			continue
		}

		log.Info("cleaning unused region files", zap.String("category", category))
		border := map[region.Coords]struct{}{}
		for _, f := range files {
			owner := r.owner(f.Coords)
			switch owner {
			case self:
				sr.Kept++
				for _, n := range f.Coords.Neighbors() {
					if r.owner(n) != self {
						border[n] = struct{}{}
					}
				}
			case Unowned:
				log.Debug("region outside world bounds", zap.String("path", f.Path))
				sr.Unowned++
			default:
				if err := fsys.Remove(f.Path); err != nil {
					return sr, fmt.Errorf("%s: remove %s: %w", srv.Label, f.Path, err)
				}
				sr.Deleted++
				if err := r.record(Action{Server: srv.Label, Category: category, Kind: ActionDelete, Path: f.Path, Region: f.Coords, Owner: owner}); err != nil {
					return sr, err
				}
			}
		}

		log.Info("copying adjacent region files", zap.String("category", category), zap.Int("candidates", len(border)))
		for _, c := range sortedCoords(border) {
			src := layout.RegionPath(category, c)
			if !fsys.Exists(src) {
				continue
			}
			dst := filepath.Join(localDir, region.Filename(c))
			if err := fsys.CopyFile(src, dst); err != nil {
				return sr, fmt.Errorf("%s: copy border %s: %w", srv.Label, src, err)
			}
			sr.Border++
			if err := r.record(Action{Server: srv.Label, Category: category, Kind: ActionBorder, Path: dst, Region: c, Owner: r.owner(c)}); err != nil {
				return sr, err
			}
		}
	}
	return sr, nil
}

func sortedCoords(set map[region.Coords]struct{}) []region.Coords {
	out := make([]region.Coords, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
