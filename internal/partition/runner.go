package partition

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/fleet"
	"github.com/WorldQL/mc-provisioner/internal/persistence/archive"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

var ErrArchiveMissing = errors.New("combined directory does not exist")

// ActionKind names a file mutation recorded in the run ledger.
type ActionKind string

const (
	ActionArchive ActionKind = "archive"
	ActionLevel   ActionKind = "level"
	ActionDelete  ActionKind = "delete"
	ActionBorder  ActionKind = "border"
)

// Action is one file mutation.
type Action struct {
	Server   string
	Category string
	Kind     ActionKind
	Path     string
	Region   region.Coords
	Owner    int16
}

// Recorder receives every mutation after it succeeded.
type Recorder interface {
	Record(Action) error
}

// Runner executes partition operations over a fleet, one server at a time.
type Runner struct {
	Params    Params
	Servers   []fleet.Server
	LevelName string

	FS      FileSystem
	Catalog *region.Catalog
	Logger  *zap.Logger
	// Recorder may be nil.
	Recorder Recorder
	DryRun   bool
}

func (r *Runner) shardCount() uint8 {
	return uint8(len(r.Servers))
}

func (r *Runner) layout() archive.Layout {
	return archive.Layout{Root: r.Params.CombinedDirectory}
}

func (r *Runner) fs() FileSystem {
	base := r.FS
	if base == nil {
		base = OSFileSystem{}
	}
	if r.DryRun {
		return DryRunFS{Base: base, Logger: r.logger()}
	}
	return base
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) catalog() *region.Catalog {
	if r.Catalog == nil {
		r.Catalog = region.NewCatalog(region.NewMatcher(), r.logger())
	}
	return r.Catalog
}

func (r *Runner) owner(c region.Coords) int16 {
	return RegionOwner(c, r.Params, r.shardCount())
}

func (r *Runner) record(a Action) error {
	if r.Recorder == nil || r.DryRun {
		return nil
	}
	if err := r.Recorder.Record(a); err != nil {
		return fmt.Errorf("record %s %s: %w", a.Kind, a.Path, err)
	}
	return nil
}

func (r *Runner) validate() error {
	if err := r.Params.Validate(); err != nil {
		return err
	}
	if len(r.Servers) > 255 {
		return fmt.Errorf("%w: at most 255 servers are supported", ErrInvalidParams)
	}
	return nil
}

// scanCategory lists a category directory. A directory that cannot be read is
// a warning, not a failure; ok=false tells the caller to skip it.
func (r *Runner) scanCategory(dir string, rep *ServerReport) ([]region.File, bool) {
	files, err := r.catalog().List(dir)
	if err != nil {
		r.logger().Warn("cannot read directory, skipping", zap.String("path", dir), zap.Error(err))
		rep.Warnings++
		return nil, false
	}
	return files, true
}

// Recorders fans each action out to every recorder in order.
type Recorders []Recorder

func (rs Recorders) Record(a Action) error {
	for _, r := range rs {
		if err := r.Record(a); err != nil {
			return err
		}
	}
	return nil
}
