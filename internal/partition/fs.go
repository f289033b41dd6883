package partition

import (
	"os"

	"go.uber.org/zap"

	"github.com/WorldQL/mc-provisioner/internal/persistence/archive"
)

// FileSystem is the set of mutations partition operations perform. Every
// error is treated as fatal for the run.
type FileSystem interface {
	Exists(path string) bool
	CopyFile(src, dst string) error
	Remove(path string) error
	RemoveAll(path string) error
	MkdirAll(path string) error
}

// OSFileSystem operates on the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) CopyFile(src, dst string) error { return archive.CopyFile(src, dst) }
func (OSFileSystem) Remove(path string) error       { return os.Remove(path) }
func (OSFileSystem) RemoveAll(path string) error    { return os.RemoveAll(path) }
func (OSFileSystem) MkdirAll(path string) error     { return os.MkdirAll(path, 0o755) }

// DryRunFS reads through to Base and only logs mutations.
type DryRunFS struct {
	Base   FileSystem
	Logger *zap.Logger
}

func (d DryRunFS) Exists(path string) bool { return d.Base.Exists(path) }

func (d DryRunFS) CopyFile(src, dst string) error {
	d.Logger.Info("dry run: copy", zap.String("from", src), zap.String("to", dst))
	return nil
}

func (d DryRunFS) Remove(path string) error {
	d.Logger.Info("dry run: remove", zap.String("path", path))
	return nil
}

func (d DryRunFS) RemoveAll(path string) error {
	d.Logger.Info("dry run: remove tree", zap.String("path", path))
	return nil
}

func (d DryRunFS) MkdirAll(path string) error {
	d.Logger.Info("dry run: create directory", zap.String("path", path))
	return nil
}
