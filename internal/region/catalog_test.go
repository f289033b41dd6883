package region

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCatalog_ScanFiltersEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "r.0.0.mca"))
	writeFile(t, filepath.Join(dir, "r.-1.2.mca"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, "r.bad.mca"))
	if err := os.MkdirAll(filepath.Join(dir, "r.3.3.mca"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	cat := NewCatalog(NewMatcher(), zap.New(core))

	files, err := cat.List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []Coords
	for _, f := range files {
		if filepath.Dir(f.Path) != dir || f.Name != filepath.Base(f.Path) {
			t.Fatalf("unexpected file record %+v", f)
		}
		got = append(got, f.Coords)
	}
	sort.Slice(got, func(i, j int) bool { return got[i].Less(got[j]) })
	want := []Coords{{X: -1, Z: 2}, {X: 0, Z: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("coords mismatch (-want +got):\n%s", diff)
	}

	warns := logs.FilterMessage("invalid region file name").All()
	if len(warns) != 1 {
		t.Fatalf("warnings=%d want 1", len(warns))
	}
}

func TestCatalog_ScanIsRestartable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "r.0.0.mca"))
	cat := NewCatalog(nil, nil)
	seq := cat.Scan(dir)

	count := func() int {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			n++
		}
		return n
	}
	if n := count(); n != 1 {
		t.Fatalf("first pass=%d want 1", n)
	}
	writeFile(t, filepath.Join(dir, "r.1.0.mca"))
	if n := count(); n != 2 {
		t.Fatalf("second pass=%d want 2", n)
	}
}

func TestCatalog_ScanMissingDirectory(t *testing.T) {
	cat := NewCatalog(nil, nil)
	n := 0
	var scanErr error
	for _, err := range cat.Scan(filepath.Join(t.TempDir(), "missing")) {
		n++
		scanErr = err
	}
	if n != 1 || scanErr == nil {
		t.Fatalf("expected exactly one error, got n=%d err=%v", n, scanErr)
	}
	if !os.IsNotExist(scanErr) {
		t.Fatalf("expected not-exist error, got %v", scanErr)
	}
}
