package r2s3

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testCreds = Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"}

func TestClient_PutFileSignsPathStyleRequest(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody string
		gotHash string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotHash = r.Header.Get("x-amz-content-sha256")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "worlds", testCreds, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	local := filepath.Join(t.TempDir(), "r.-1.0.mca")
	if err := os.WriteFile(local, []byte("region"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.PutFile(context.Background(), "/mammoth//region/r.-1.0.mca", local); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if gotPath != "/worlds/mammoth/region/r.-1.0.mca" {
		t.Fatalf("path=%q", gotPath)
	}
	if gotBody != "region" {
		t.Fatalf("body=%q", gotBody)
	}
	if gotHash != sha256Hex([]byte("region")) {
		t.Fatalf("payload hash=%q", gotHash)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKID/20240501/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=") {
		t.Fatalf("auth=%q", gotAuth)
	}
}

func TestClient_PutFileReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "worlds", testCreds, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	local := filepath.Join(t.TempDir(), "level.dat")
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err = c.PutFile(context.Background(), "level.dat", local)
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("err=%v want status=403", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "b", testCreds); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("err=%v want ErrInvalidEndpoint", err)
	}
	if _, err := New("ftp://example.com", "b", testCreds); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("err=%v want ErrInvalidEndpoint", err)
	}
	if _, err := New("example.com", "b", Credentials{SecretAccessKey: "s"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err=%v want ErrMissingCredentials", err)
	}
	c, err := New("example.com/", "b", testCreds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.endpoint != "https://example.com" {
		t.Fatalf("endpoint=%q", c.endpoint)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvAccessKeyID, "")
	t.Setenv(EnvSecretAccessKey, "")
	if _, err := CredentialsFromEnv(); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err=%v want ErrMissingCredentials", err)
	}
	t.Setenv(EnvAccessKeyID, " id ")
	t.Setenv(EnvSecretAccessKey, "secret")
	got, err := CredentialsFromEnv()
	if err != nil || got != (Credentials{AccessKeyID: "id", SecretAccessKey: "secret"}) {
		t.Fatalf("got %+v %v", got, err)
	}
}

func TestNormalizeObjectKey(t *testing.T) {
	cases := map[string]string{
		"a/b":         "a/b",
		"/a//b/":      "a/b",
		`a\b`:         "a/b",
		"":            "",
		"/":           "",
		"a/../../etc": "etc",
	}
	for in, want := range cases {
		if got := normalizeObjectKey(in); got != want {
			t.Fatalf("normalizeObjectKey(%q)=%q want %q", in, got, want)
		}
	}
}

func TestSigner_DerivesDocumentedKey(t *testing.T) {
	s := signer{
		creds:   Credentials{SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"},
		region:  "us-east-1",
		service: "iam",
	}
	got := hex.EncodeToString(s.key("20120215"))
	if got != "f4780e2d9f65fa895f9c67b32ce1baf0b0d8a43505a000a1a9e090d414db404d" {
		t.Fatalf("signing key=%s", got)
	}
}

func TestSigner_SignatureDependsOnSecretAndTime(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sign := func(secret string, at time.Time) string {
		req := httptest.NewRequest(http.MethodPut, "https://r2.example.com/worlds/level.dat", nil)
		newSigner(Credentials{AccessKeyID: "AKID", SecretAccessKey: secret}).sign(req, sha256Hex(nil), at)
		return req.Header.Get("Authorization")
	}
	base := sign("one", at)
	if base != sign("one", at) {
		t.Fatalf("signature not deterministic")
	}
	if base == sign("two", at) {
		t.Fatalf("signature ignores secret")
	}
	if base == sign("one", at.Add(time.Second)) {
		t.Fatalf("signature ignores time")
	}
}
