package serverjar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUnknownJarType     = errors.New("unknown jar type")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrNoArtifacts        = errors.New("no build artifacts found")
)

type JarType string

const (
	Paper      JarType = "paper"
	Pufferfish JarType = "pufferfish"
)

func ParseJarType(s string) (JarType, error) {
	switch JarType(strings.ToLower(strings.TrimSpace(s))) {
	case Paper:
		return Paper, nil
	case Pufferfish:
		return Pufferfish, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownJarType, s)
	}
}

// FileName is the name the jar is written under in each server directory.
func (t JarType) FileName() string {
	return string(t) + ".jar"
}

func (t JarType) String() string { return string(t) }

// Set and Type let a JarType be bound directly as a command-line flag.
func (t *JarType) Set(s string) error {
	v, err := ParseJarType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *JarType) Type() string { return "jar-type" }

const (
	DefaultPaperBaseURL      = "https://papermc.io/api/v2/projects/paper"
	DefaultPufferfishBaseURL = "https://ci.pufferfish.host"
	maxJarBytes              = 256 << 20
)

// Downloader fetches server jars from the upstream build services.
type Downloader struct {
	client            *http.Client
	paperBaseURL      string
	pufferfishBaseURL string
	userAgent         string
	logger            *zap.Logger
}

type Option func(*Downloader)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

func WithBaseURLs(paper, pufferfish string) Option {
	return func(d *Downloader) {
		if paper != "" {
			d.paperBaseURL = strings.TrimRight(paper, "/")
		}
		if pufferfish != "" {
			d.pufferfishBaseURL = strings.TrimRight(pufferfish, "/")
		}
	}
}

func NewDownloader(version string, logger *zap.Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	d := &Downloader{
		client:            &http.Client{Timeout: 5 * time.Minute},
		paperBaseURL:      DefaultPaperBaseURL,
		pufferfishBaseURL: DefaultPufferfishBaseURL,
		userAgent:         "mc-provisioner/" + version,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download returns the jar bytes of the newest build for version.
func (d *Downloader) Download(ctx context.Context, t JarType, version string) ([]byte, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("jar version is required")
	}
	switch t {
	case Paper:
		return d.paper(ctx, version)
	case Pufferfish:
		return d.pufferfish(ctx, version)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJarType, string(t))
	}
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	return d.client.Do(req)
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(url, resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJarBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxJarBytes {
		return nil, fmt.Errorf("download %s exceeds %d bytes", url, maxJarBytes)
	}
	return body, nil
}

func statusError(url string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	return fmt.Errorf("GET %s: status=%d body=%s", url, resp.StatusCode, strings.TrimSpace(string(body)))
}
