package config

import (
	"fmt"
	"path/filepath"

	"github.com/WorldQL/mc-provisioner/internal/fleet"
	"github.com/WorldQL/mc-provisioner/internal/partition"
	"github.com/WorldQL/mc-provisioner/internal/provision"
	"github.com/WorldQL/mc-provisioner/internal/serverjar"
)

const (
	DefaultServerCount       uint8  = 2
	DefaultStartPort         uint16 = 25565
	DefaultDirectoryTemplate        = "Mammoth Server"
	DefaultLevelName                = "world"
	DefaultIndexPath                = "provisioner.sqlite"
	DefaultPublishWorkers           = 4
)

// pick returns the flag value when set, then the file value, then def.
func pick[T any](flag, file *T, def T) T {
	if flag != nil {
		return *flag
	}
	if file != nil {
		return *file
	}
	return def
}

// Global is the fully-resolved fleet configuration.
type Global struct {
	Root              string
	ServerCount       uint8
	StartPort         uint16
	DirectoryTemplate string
	LevelName         string
	JarType           serverjar.JarType
	JarVersion        string
	SyncDirs          []string
}

// GlobalOverrides holds command-line values; nil means the flag was not set.
type GlobalOverrides struct {
	Root              *string
	ServerCount       *uint8
	StartPort         *uint16
	DirectoryTemplate *string
	LevelName         *string
	JarType           *string
	JarVersion        *string
	SyncDirs          []string
}

func (f File) ResolveGlobal(o GlobalOverrides) (Global, error) {
	g := Global{
		Root:              pick(o.Root, nil, ""),
		ServerCount:       pick(o.ServerCount, f.Global.ServerCount, DefaultServerCount),
		StartPort:         pick(o.StartPort, f.Global.StartPort, DefaultStartPort),
		DirectoryTemplate: pick(o.DirectoryTemplate, f.Global.DirectoryTemplate, DefaultDirectoryTemplate),
		LevelName:         pick(o.LevelName, f.Global.LevelName, DefaultLevelName),
		JarVersion:        pick(o.JarVersion, f.Global.JarVersion, ""),
	}
	jt, err := serverjar.ParseJarType(pick(o.JarType, f.Global.JarType, string(serverjar.Paper)))
	if err != nil {
		return g, err
	}
	g.JarType = jt

	switch {
	case o.SyncDirs != nil:
		g.SyncDirs = o.SyncDirs
	case f.Global.SyncDirs != nil:
		g.SyncDirs = f.Global.SyncDirs
	default:
		g.SyncDirs = []string{"plugins"}
	}
	if int(g.StartPort)+int(g.ServerCount)-1 > 65535 {
		return g, fmt.Errorf("start_port %d with %d servers exceeds port 65535", g.StartPort, g.ServerCount)
	}
	return g, nil
}

// Servers enumerates the fleet under Root.
func (g Global) Servers() []fleet.Server {
	return fleet.Under(g.Root, fleet.Servers(g.ServerCount, g.StartPort, g.DirectoryTemplate))
}

type WorldOverrides struct {
	WorldDiameter      *uint32
	SliceWidth         *uint32
	AvoidSlicingOrigin *bool
	OriginRadius       *uint32
	CombinedDirectory  *string
}

// ResolveWorld merges the world_management section and validates the result.
// Every value except avoid_slicing_origin is required; origin_radius is only
// required when avoid_slicing_origin is set.
func (f File) ResolveWorld(o WorldOverrides) (partition.Params, error) {
	w := f.WorldManagement
	diameter := firstSet(o.WorldDiameter, w.WorldDiameter)
	if diameter == nil {
		return partition.Params{}, fmt.Errorf("%w: world_diameter", ErrMissingSetting)
	}
	slice := firstSet(o.SliceWidth, w.SliceWidth)
	if slice == nil {
		return partition.Params{}, fmt.Errorf("%w: slice_width", ErrMissingSetting)
	}
	dir := firstSet(o.CombinedDirectory, w.CombinedDirectory)
	if dir == nil {
		return partition.Params{}, fmt.Errorf("%w: combined_directory", ErrMissingSetting)
	}
	avoid := pick(o.AvoidSlicingOrigin, w.AvoidSlicingOrigin, false)
	radius := firstSet(o.OriginRadius, w.OriginRadius)
	if avoid && radius == nil {
		return partition.Params{}, fmt.Errorf("%w: origin_radius", ErrMissingSetting)
	}
	var r uint32
	if radius != nil {
		r = *radius
	}
	return partition.NewParams(*diameter, *slice, avoid, r, *dir)
}

func firstSet[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

type InitOverrides struct {
	LevelSeed  *string
	Ops        []string
	WhiteList  []string
	Properties []string
}

func (f File) ResolveInit(o InitOverrides) (provision.InitOptions, error) {
	props, err := provision.MergeProperties(f.Init.ServerProperties, o.Properties)
	if err != nil {
		return provision.InitOptions{}, err
	}
	opts := provision.InitOptions{
		LevelSeed:  pick(o.LevelSeed, f.Init.LevelSeed, ""),
		Ops:        f.Init.Ops,
		WhiteList:  f.Init.WhiteList,
		Properties: props,
	}
	if o.Ops != nil {
		opts.Ops = o.Ops
	}
	if o.WhiteList != nil {
		opts.WhiteList = o.WhiteList
	}
	return opts, nil
}

type Index struct {
	Path     string
	Disabled bool
	// JournalDir is empty when no action journal is written.
	JournalDir string
}

// ResolveIndex places relative ledger and journal paths under root.
func (f File) ResolveIndex(root string, disable *bool, journalDir *string) Index {
	idx := Index{
		Path:       pick(nil, f.Index.Path, DefaultIndexPath),
		Disabled:   pick(disable, f.Index.Disabled, false),
		JournalDir: pick(journalDir, f.Index.JournalDir, ""),
	}
	if root != "" && !filepath.IsAbs(idx.Path) {
		idx.Path = filepath.Join(root, idx.Path)
	}
	if root != "" && idx.JournalDir != "" && !filepath.IsAbs(idx.JournalDir) {
		idx.JournalDir = filepath.Join(root, idx.JournalDir)
	}
	return idx
}

type Publish struct {
	Endpoint string
	Bucket   string
	Prefix   string
	Workers  int
}

type PublishOverrides struct {
	Endpoint *string
	Bucket   *string
	Prefix   *string
	Workers  *int
}

func (f File) ResolvePublish(o PublishOverrides) (Publish, error) {
	p := Publish{
		Endpoint: pick(o.Endpoint, f.Publish.Endpoint, ""),
		Bucket:   pick(o.Bucket, f.Publish.Bucket, ""),
		Prefix:   pick(o.Prefix, f.Publish.Prefix, ""),
		Workers:  pick(o.Workers, f.Publish.Workers, DefaultPublishWorkers),
	}
	if p.Endpoint == "" {
		return p, fmt.Errorf("%w: publish.endpoint", ErrMissingSetting)
	}
	if p.Bucket == "" {
		return p, fmt.Errorf("%w: publish.bucket", ErrMissingSetting)
	}
	if p.Workers <= 0 {
		p.Workers = DefaultPublishWorkers
	}
	return p, nil
}
