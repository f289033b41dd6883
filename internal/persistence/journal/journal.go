package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/WorldQL/mc-provisioner/internal/partition"
)

// Entry is one journal line.
type Entry struct {
	Time     string `json:"ts"`
	Server   string `json:"server"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Path     string `json:"path"`
	RegionX  int64  `json:"rx"`
	RegionZ  int64  `json:"rz"`
	Owner    int16  `json:"owner"`
}

// Writer appends file actions of one run to a zstd-compressed JSONL file.
// It implements partition.Recorder.
type Writer struct {
	path string
	now  func() time.Time

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// Create opens <dir>/<operation>-<UTC timestamp>.jsonl.zst.
func Create(dir, operation string, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%s.jsonl.zst", operation, now.UTC().Format("20060102T150405.000Z"))
	p := filepath.Join(dir, name)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{
		path: p,
		now:  time.Now,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (w *Writer) Path() string { return w.path }

func (w *Writer) Record(a partition.Action) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return errors.New("journal closed")
	}
	b, err := json.Marshal(Entry{
		Time:     w.now().UTC().Format(time.RFC3339Nano),
		Server:   a.Server,
		Category: a.Category,
		Action:   string(a.Kind),
		Path:     a.Path,
		RegionX:  a.Region.X,
		RegionZ:  a.Region.Z,
		Owner:    a.Owner,
	})
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	return err1
}

// Read decodes every entry of a journal file.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var e Entry
		err := jd.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}
