package region

import (
	"iter"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// File is one region file found on disk.
type File struct {
	Path   string
	Name   string
	Coords Coords
}

// Catalog lists region files in a directory.
type Catalog struct {
	matcher *Matcher
	logger  *zap.Logger
}

func NewCatalog(m *Matcher, logger *zap.Logger) *Catalog {
	if m == nil {
		m = NewMatcher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{matcher: m, logger: logger}
}

// Scan yields the region files of dir in directory order. Ranging over the
// result again re-reads the directory. If the directory cannot be read a
// single error is yielded and iteration stops. Entries that are not regular
// files or lack the region extension are ignored; names that look like
// region files but do not parse are logged and skipped.
func (c *Catalog) Scan(dir string) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			yield(File{}, err)
			return
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			name := e.Name()
			if filepath.Ext(name) != "."+Extension {
				continue
			}
			path := filepath.Join(dir, name)
			coords, ok := c.matcher.Parse(name)
			if !ok {
				c.logger.Warn("invalid region file name", zap.String("path", path))
				continue
			}
			if !yield(File{Path: path, Name: name, Coords: coords}, nil) {
				return
			}
		}
	}
}

// List collects Scan into a slice.
func (c *Catalog) List(dir string) ([]File, error) {
	var out []File
	for f, err := range c.Scan(dir) {
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
