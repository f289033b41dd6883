package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/WorldQL/mc-provisioner/internal/region"
)

// Layout addresses files inside the master archive: one directory per region
// category plus the level metadata of the first server.
type Layout struct {
	Root string
}

func (l Layout) CategoryDir(category string) string {
	return filepath.Join(l.Root, category)
}

func (l Layout) LevelPath() string {
	return filepath.Join(l.Root, region.LevelFile)
}

func (l Layout) RegionPath(category string, c region.Coords) string {
	return filepath.Join(l.Root, category, region.Filename(c))
}

// Exists reports whether the archive root is present.
func (l Layout) Exists() bool {
	st, err := os.Stat(l.Root)
	return err == nil && st.IsDir()
}

// CopyFile copies src to dst, truncating dst if it exists.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
