package r2s3

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

type fakeUploader struct {
	mu       sync.Mutex
	keys     []string
	failures map[string]int
	calls    map[string]int
}

func (f *fakeUploader) PutFile(ctx context.Context, key, local string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[key]++
	if f.failures[key] > 0 {
		f.failures[key]--
		return errors.New("transient")
	}
	if _, err := os.Stat(local); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	return nil
}

func archiveFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, rel := range []string{"level.dat", "region/r.0.0.mca", "region/r.-1.0.mca", "poi/r.0.0.mca"} {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestPublisher_UploadsSortedUnderPrefix(t *testing.T) {
	dir := archiveFixture(t)
	up := &fakeUploader{failures: map[string]int{"worlds/mammoth/region/r.0.0.mca": 2}}
	p := NewPublisher(up, "/worlds/mammoth/", 1, zap.NewNop())
	p.backoff = func(int) time.Duration { return 0 }

	res, err := p.Publish(context.Background(), dir)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := []string{
		"worlds/mammoth/level.dat",
		"worlds/mammoth/poi/r.0.0.mca",
		"worlds/mammoth/region/r.-1.0.mca",
		"worlds/mammoth/region/r.0.0.mca",
	}
	if diff := cmp.Diff(want, res.Uploaded); diff != "" {
		t.Fatalf("uploaded mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, up.keys); diff != "" {
		t.Fatalf("upload order mismatch (-want +got):\n%s", diff)
	}
	if up.calls["worlds/mammoth/region/r.0.0.mca"] != 3 {
		t.Fatalf("retries=%d want 3 calls", up.calls["worlds/mammoth/region/r.0.0.mca"])
	}
}

func TestPublisher_ParallelWorkersUploadEverything(t *testing.T) {
	dir := archiveFixture(t)
	up := &fakeUploader{}
	p := NewPublisher(up, "", 3, nil)

	res, err := p.Publish(context.Background(), dir)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := append([]string(nil), up.keys...)
	sort.Strings(got)
	if diff := cmp.Diff(res.Uploaded, got); diff != "" {
		t.Fatalf("uploaded mismatch (-result +uploader):\n%s", diff)
	}
	if len(got) != 4 {
		t.Fatalf("uploaded=%d want 4", len(got))
	}
}

func TestPublisher_GivesUpAfterRetries(t *testing.T) {
	dir := archiveFixture(t)
	up := &fakeUploader{failures: map[string]int{"level.dat": 10}}
	p := NewPublisher(up, "", 1, nil)
	p.backoff = func(int) time.Duration { return 0 }

	res, err := p.Publish(context.Background(), dir)
	if err == nil {
		t.Fatalf("expected error")
	}
	if up.calls["level.dat"] != 4 {
		t.Fatalf("attempts=%d want 4", up.calls["level.dat"])
	}
	if len(res.Uploaded) != 0 {
		t.Fatalf("uploaded=%v want none before the failing first key", res.Uploaded)
	}
}

func TestPublisher_MissingDir(t *testing.T) {
	p := NewPublisher(&fakeUploader{}, "", 1, nil)
	if _, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
