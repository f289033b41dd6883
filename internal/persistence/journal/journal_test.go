package journal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/WorldQL/mc-provisioner/internal/partition"
	"github.com/WorldQL/mc-provisioner/internal/region"
)

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	w, err := Create(filepath.Join(dir, "journal"), "optimize", at)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w.now = func() time.Time { return at }
	if !strings.HasSuffix(w.Path(), "optimize-20240301T100000.000Z.jsonl.zst") {
		t.Fatalf("path=%s", w.Path())
	}

	var rec partition.Recorder = w
	actions := []partition.Action{
		{Server: "s1", Category: "region", Kind: partition.ActionDelete, Path: "/a/r.1.0.mca", Region: region.Coords{X: 1}, Owner: 1},
		{Server: "s1", Category: "entities", Kind: partition.ActionBorder, Path: "/a/r.-1.3.mca", Region: region.Coords{X: -1, Z: 3}, Owner: 1},
	}
	for _, a := range actions {
		if err := rec.Record(a); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Record(actions[0]); err == nil {
		t.Fatalf("expected error after close")
	}

	got, err := Read(w.Path())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []Entry{
		{Time: "2024-03-01T10:00:00Z", Server: "s1", Category: "region", Action: "delete", Path: "/a/r.1.0.mca", RegionX: 1, Owner: 1},
		{Time: "2024-03-01T10:00:00Z", Server: "s1", Category: "entities", Action: "border", Path: "/a/r.-1.3.mca", RegionX: -1, RegionZ: 3, Owner: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_RefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	w, err := Create(dir, "combine", at)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()
	if _, err := Create(dir, "combine", at); err == nil {
		t.Fatalf("expected error for duplicate journal")
	}
}
