package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WorldQL/mc-provisioner/internal/partition"
	"github.com/WorldQL/mc-provisioner/internal/provision"
	"github.com/WorldQL/mc-provisioner/internal/serverjar"
)

func ptr[T any](v T) *T { return &v }

const sample = `
global:
  server_count: 4
  directory_template: Test Server
  jar_type: pufferfish
  jar_version: "1.19"
init:
  level_seed: 12345
  ops: [alice]
  server_properties:
    view-distance: 8
    pvp: false
world_management:
  world_diameter: 2048
  slice_width: 512
  combined_directory: combined
index:
  path: state/ledger.sqlite
  journal_dir: journal
publish:
  endpoint: r2.example.com
  bucket: worlds
`

func TestParse_Sample(t *testing.T) {
	f, err := Parse("provisioner.yaml", []byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	g, err := f.ResolveGlobal(GlobalOverrides{StartPort: ptr(uint16(30000))})
	if err != nil {
		t.Fatalf("ResolveGlobal: %v", err)
	}
	want := Global{
		ServerCount:       4,
		StartPort:         30000,
		DirectoryTemplate: "Test Server",
		LevelName:         "world",
		JarType:           serverjar.Pufferfish,
		JarVersion:        "1.19",
		SyncDirs:          []string{"plugins"},
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Fatalf("global mismatch (-want +got):\n%s", diff)
	}

	opts, err := f.ResolveInit(InitOverrides{Properties: []string{"pvp=true"}})
	if err != nil {
		t.Fatalf("ResolveInit: %v", err)
	}
	if opts.LevelSeed != "12345" {
		t.Fatalf("seed=%q", opts.LevelSeed)
	}
	wantProps := []provision.Property{{Key: "pvp", Value: "true"}, {Key: "view-distance", Value: "8"}}
	if diff := cmp.Diff(wantProps, opts.Properties); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}

	p, err := f.ResolveWorld(WorldOverrides{})
	if err != nil {
		t.Fatalf("ResolveWorld: %v", err)
	}
	if p.WorldDiameter != 2048 || p.SliceWidth != 512 || p.CombinedDirectory != "combined" || p.AvoidSlicingOrigin {
		t.Fatalf("params=%+v", p)
	}

	idx := f.ResolveIndex("/srv", nil, nil)
	if idx.Path != filepath.Join("/srv", "state", "ledger.sqlite") || idx.Disabled || idx.JournalDir != filepath.Join("/srv", "journal") {
		t.Fatalf("index=%+v", idx)
	}
	if idx := f.ResolveIndex("", ptr(true), ptr("/var/j")); !idx.Disabled || idx.JournalDir != "/var/j" {
		t.Fatalf("flags ignored: %+v", idx)
	}

	pub, err := f.ResolvePublish(PublishOverrides{Prefix: ptr("mammoth")})
	if err != nil {
		t.Fatalf("ResolvePublish: %v", err)
	}
	if pub.Endpoint != "r2.example.com" || pub.Bucket != "worlds" || pub.Prefix != "mammoth" || pub.Workers != DefaultPublishWorkers {
		t.Fatalf("publish=%+v", pub)
	}
}

func TestLoad_MissingFileMeansDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "provisioner.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g, err := f.ResolveGlobal(GlobalOverrides{})
	if err != nil {
		t.Fatalf("ResolveGlobal: %v", err)
	}
	if g.ServerCount != 2 || g.StartPort != 25565 || g.DirectoryTemplate != "Mammoth Server" || g.JarType != serverjar.Paper || g.LevelName != "world" {
		t.Fatalf("defaults=%+v", g)
	}
	servers := g.Servers()
	if len(servers) != 2 || servers[1].Directory != "mammoth_server_25566" {
		t.Fatalf("servers=%+v", servers)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "provisioner.yaml")
	if err := os.WriteFile(p, []byte("global:\n  server_count: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g, err := f.ResolveGlobal(GlobalOverrides{ServerCount: ptr(uint8(5))})
	if err != nil {
		t.Fatalf("ResolveGlobal: %v", err)
	}
	if g.ServerCount != 5 {
		t.Fatalf("flag should win over file, got %d", g.ServerCount)
	}
}

func TestParse_SchemaRejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown section", "extra:\n  a: 1\n", "extra"},
		{"unknown key", "global:\n  servers: 2\n", "servers"},
		{"wrong type", "world_management:\n  slice_width: wide\n", "slice_width"},
		{"bad jar", "global:\n  jar_type: spigot\n", "jar_type"},
		{"too many servers", "global:\n  server_count: 300\n", "server_count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("provisioner.yaml", []byte(tc.doc))
			if err == nil {
				t.Fatalf("expected schema error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v should mention %q", err, tc.want)
			}
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	if _, err := Parse("provisioner.yaml", []byte("\n# nothing\n")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestResolveWorld_MissingSettings(t *testing.T) {
	cases := []struct {
		name string
		o    WorldOverrides
		key  string
	}{
		{"diameter", WorldOverrides{SliceWidth: ptr(uint32(512)), CombinedDirectory: ptr("c")}, "world_diameter"},
		{"slice", WorldOverrides{WorldDiameter: ptr(uint32(2048)), CombinedDirectory: ptr("c")}, "slice_width"},
		{"dir", WorldOverrides{WorldDiameter: ptr(uint32(2048)), SliceWidth: ptr(uint32(512))}, "combined_directory"},
		{"radius", WorldOverrides{WorldDiameter: ptr(uint32(2048)), SliceWidth: ptr(uint32(512)), CombinedDirectory: ptr("c"), AvoidSlicingOrigin: ptr(true)}, "origin_radius"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := File{}.ResolveWorld(tc.o)
			if !errors.Is(err, ErrMissingSetting) || !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("err=%v want missing %s", err, tc.key)
			}
		})
	}
}

func TestResolveWorld_FlagsOverrideAndValidate(t *testing.T) {
	f := File{WorldManagement: WorldSection{
		WorldDiameter:     ptr(uint32(2048)),
		SliceWidth:        ptr(uint32(512)),
		CombinedDirectory: ptr("combined"),
	}}
	p, err := f.ResolveWorld(WorldOverrides{AvoidSlicingOrigin: ptr(true), OriginRadius: ptr(uint32(512))})
	if err != nil {
		t.Fatalf("ResolveWorld: %v", err)
	}
	if !p.AvoidSlicingOrigin || p.OriginRadius != 512 {
		t.Fatalf("params=%+v", p)
	}
	if _, err := f.ResolveWorld(WorldOverrides{SliceWidth: ptr(uint32(500))}); !errors.Is(err, partition.ErrInvalidParams) {
		t.Fatalf("err=%v want ErrInvalidParams", err)
	}
}

func TestResolvePublish_RequiresEndpoint(t *testing.T) {
	if _, err := (File{}).ResolvePublish(PublishOverrides{Bucket: ptr("b")}); !errors.Is(err, ErrMissingSetting) {
		t.Fatalf("err=%v want ErrMissingSetting", err)
	}
}

func TestResolveGlobal_PortOverflow(t *testing.T) {
	if _, err := (File{}).ResolveGlobal(GlobalOverrides{StartPort: ptr(uint16(65535)), ServerCount: ptr(uint8(2))}); err == nil {
		t.Fatalf("expected port overflow error")
	}
}
