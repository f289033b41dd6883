package bundle

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

var ErrUnsafeEntry = errors.New("unsafe bundle entry")

// Export writes archiveDir as a zstd-compressed tar stream. Entries are sorted
// and carry no timestamps or owners, so equal archives give equal bundles.
func Export(archiveDir, outPath string) (int, error) {
	info, err := os.Stat(archiveDir)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", archiveDir)
	}

	var entries []string
	err = filepath.WalkDir(archiveDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == archiveDir {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(archiveDir, p)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.Strings(entries)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, err
	}
	tmp := outPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	files, werr := writeTar(f, archiveDir, entries)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return 0, werr
	}
	if err := os.Rename(tmp, outPath); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return files, nil
}

func writeTar(w io.Writer, root string, entries []string) (int, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	tw := tar.NewWriter(bw)

	files := 0
	for _, rel := range entries {
		full := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil {
			enc.Close()
			return files, err
		}
		hdr := &tar.Header{
			Name:    rel,
			ModTime: time.Unix(0, 0).UTC(),
			Format:  tar.FormatPAX,
		}
		if info.IsDir() {
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
			hdr.Mode = 0o755
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Mode = 0o644
			hdr.Size = info.Size()
		}
		if err := tw.WriteHeader(hdr); err != nil {
			enc.Close()
			return files, err
		}
		if info.IsDir() {
			continue
		}
		if err := copyInto(tw, full); err != nil {
			enc.Close()
			return files, fmt.Errorf("%s: %w", rel, err)
		}
		files++
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return files, err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return files, err
	}
	return files, enc.Close()
}

func copyInto(w io.Writer, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Import replaces archiveDir with the contents of the bundle at bundlePath.
func Import(bundlePath, archiveDir string) (int, error) {
	f, err := os.Open(bundlePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	if err := os.RemoveAll(archiveDir); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, err
	}

	tr := tar.NewReader(bufio.NewReaderSize(dec, 256*1024))
	files := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return files, err
		}
		target, err := entryPath(archiveDir, hdr.Name)
		if err != nil {
			return files, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
		case tar.TypeReg:
			if err := extractFile(tr, target); err != nil {
				return files, err
			}
			files++
		default:
			return files, fmt.Errorf("%w: %s has type %q", ErrUnsafeEntry, hdr.Name, hdr.Typeflag)
		}
	}
}

func entryPath(root, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func extractFile(r io.Reader, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
