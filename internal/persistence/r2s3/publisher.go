package r2s3

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Uploader is the part of Client the publisher needs.
type Uploader interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
}

// Publisher mirrors a combined archive directory into a bucket prefix.
type Publisher struct {
	up      Uploader
	prefix  string
	workers int
	logger  *zap.Logger

	maxAttempts int
	backoff     func(attempt int) time.Duration
}

// PublishResult lists the keys that were uploaded.
type PublishResult struct {
	Uploaded []string
}

func NewPublisher(up Uploader, prefix string, workers int, logger *zap.Logger) *Publisher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		up:          up,
		prefix:      strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		workers:     workers,
		logger:      logger,
		maxAttempts: 4,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 200 * time.Millisecond
		},
	}
}

// Publish uploads every regular file under dir. Keys are walked in sorted
// order; the first upload that fails after all retries aborts the publish.
func (p *Publisher) Publish(ctx context.Context, dir string) (PublishResult, error) {
	var files []string
	err := filepath.WalkDir(dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, fp)
		}
		return nil
	})
	if err != nil {
		return PublishResult{}, err
	}
	sort.Strings(files)

	type job struct {
		key, local string
	}
	jobs := make([]job, 0, len(files))
	for _, fp := range files {
		key, err := p.objectKey(dir, fp)
		if err != nil {
			return PublishResult{}, err
		}
		jobs = append(jobs, job{key: key, local: fp})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan job)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		uploaded = make(map[string]bool, len(jobs))
	)
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				if err := p.uploadWithRetry(ctx, j.key, j.local); err != nil {
					p.logger.Error("upload failed", zap.String("key", j.key), zap.String("path", j.local), zap.Error(err))
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("upload %s: %w", j.key, err)
					}
					mu.Unlock()
					cancel()
					continue
				}
				p.logger.Debug("uploaded", zap.String("key", j.key), zap.String("path", j.local))
				mu.Lock()
				uploaded[j.key] = true
				mu.Unlock()
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case queue <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	var res PublishResult
	for _, j := range jobs {
		if uploaded[j.key] {
			res.Uploaded = append(res.Uploaded, j.key)
		}
	}
	if firstErr != nil {
		return res, firstErr
	}
	return res, ctx.Err()
}

func (p *Publisher) uploadWithRetry(ctx context.Context, key, localPath string) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		err := p.up.PutFile(attemptCtx, key, localPath)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < p.maxAttempts {
			p.logger.Warn("upload attempt failed", zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-time.After(p.backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func (p *Publisher) objectKey(base, localPath string) (string, error) {
	rel, err := filepath.Rel(base, localPath)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside %s", localPath, base)
	}
	if p.prefix != "" {
		return path.Join(p.prefix, rel), nil
	}
	return rel, nil
}
