package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "provisioner.yaml"

var ErrMissingSetting = errors.New("missing setting")

const schemaURL = "https://worldql.com/schemas/provisioner.json"

//go:embed schema.json
var schemaJSON []byte

// File is the on-disk provisioner.yaml. Unset values stay nil so flags and
// defaults can be layered over them.
type File struct {
	Global          GlobalSection  `yaml:"global"`
	Init            InitSection    `yaml:"init"`
	WorldManagement WorldSection   `yaml:"world_management"`
	Index           IndexSection   `yaml:"index"`
	Publish         PublishSection `yaml:"publish"`
}

type GlobalSection struct {
	ServerCount       *uint8   `yaml:"server_count"`
	StartPort         *uint16  `yaml:"start_port"`
	DirectoryTemplate *string  `yaml:"directory_template"`
	LevelName         *string  `yaml:"level_name"`
	JarType           *string  `yaml:"jar_type"`
	JarVersion        *string  `yaml:"jar_version"`
	SyncDirs          []string `yaml:"sync_dirs"`
}

type InitSection struct {
	LevelSeed        *string           `yaml:"level_seed"`
	Ops              []string          `yaml:"ops"`
	WhiteList        []string          `yaml:"white_list"`
	ServerProperties map[string]string `yaml:"server_properties"`
}

type WorldSection struct {
	WorldDiameter      *uint32 `yaml:"world_diameter"`
	SliceWidth         *uint32 `yaml:"slice_width"`
	AvoidSlicingOrigin *bool   `yaml:"avoid_slicing_origin"`
	OriginRadius       *uint32 `yaml:"origin_radius"`
	CombinedDirectory  *string `yaml:"combined_directory"`
}

type IndexSection struct {
	Path       *string `yaml:"path"`
	Disabled   *bool   `yaml:"disabled"`
	JournalDir *string `yaml:"journal_dir"`
}

type PublishSection struct {
	Endpoint *string `yaml:"endpoint"`
	Bucket   *string `yaml:"bucket"`
	Prefix   *string `yaml:"prefix"`
	Workers  *int    `yaml:"workers"`
}

// Load reads path. A missing file yields an empty File.
func Load(path string) (File, error) {
	var f File
	if strings.TrimSpace(path) == "" {
		return f, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, err
	}
	return Parse(path, b)
}

// Parse validates b against the embedded schema and decodes it.
func Parse(name string, b []byte) (File, error) {
	var f File
	if len(bytes.TrimSpace(b)) == 0 {
		return f, nil
	}
	if err := validateDocument(b); err != nil {
		return f, fmt.Errorf("%s: %w", name, err)
	}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

var schema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

func validateDocument(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees json.Number and
	// map[string]any regardless of how YAML typed the scalars.
	jb, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(jb))
	if err != nil {
		return err
	}
	s, err := schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return s.Validate(v)
}
