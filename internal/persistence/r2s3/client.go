package r2s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

var ErrInvalidEndpoint = errors.New("invalid object storage endpoint")

// Client uploads single objects to one bucket.
type Client struct {
	endpoint   string
	bucket     string
	signer     signer
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a two minute timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a client for endpoint, a host or base URL. A bare host gets https.
func New(endpoint, bucket string, creds Credentials, opts ...Option) (*Client, error) {
	base, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	bucket = strings.Trim(strings.TrimSpace(bucket), "/")
	if bucket == "" {
		return nil, fmt.Errorf("publish bucket is required")
	}
	creds = creds.trimmed()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:   base,
		bucket:     bucket,
		signer:     newSigner(creds),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: endpoint is required", ErrInvalidEndpoint)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidEndpoint, raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// PutFile uploads localPath as objectKey. The key is cleaned to a relative
// slash path first.
func (c *Client) PutFile(ctx context.Context, objectKey, localPath string) error {
	key := normalizeObjectKey(objectKey)
	if key == "" {
		return fmt.Errorf("empty object key %q", objectKey)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", localPath)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash %s: %w", localPath, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(key), f)
	if err != nil {
		return err
	}
	req.ContentLength = st.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	c.signer.sign(req, hex.EncodeToString(h.Sum(nil)), c.now())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	return fmt.Errorf("put object failed status=%d key=%s body=%s", resp.StatusCode, key, strings.TrimSpace(string(body)))
}

func (c *Client) objectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.endpoint + "/" + url.PathEscape(c.bucket) + "/" + strings.Join(parts, "/")
}

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, `\`, "/"))
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
