package provision

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/WorldQL/mc-provisioner/internal/persistence/archive"
)

// copyContents copies everything under src into dst, overwriting files that
// already exist.
func copyContents(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type().IsRegular():
			return archive.CopyFile(p, target)
		default:
			return nil
		}
	})
}
