package r2s3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	sigV4Algorithm = "AWS4-HMAC-SHA256"
	sigV4Region    = "auto"
	sigV4Service   = "s3"

	amzDateLayout   = "20060102T150405Z"
	scopeDateLayout = "20060102"
)

// signedHeaderNames are the only headers covered by the signature, sorted.
var signedHeaderNames = []string{"host", "x-amz-content-sha256", "x-amz-date"}

type signer struct {
	creds   Credentials
	region  string
	service string
}

func newSigner(creds Credentials) signer {
	return signer{creds: creds, region: sigV4Region, service: sigV4Service}
}

func (s signer) scope(day string) string {
	return day + "/" + s.region + "/" + s.service + "/aws4_request"
}

// sign sets the date, payload hash and Authorization headers on req. The
// request URL path must already be escaped; there is no query string.
func (s signer) sign(req *http.Request, payloadHash string, at time.Time) {
	at = at.UTC()
	stamp := at.Format(amzDateLayout)
	day := at.Format(scopeDateLayout)

	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Header.Set("x-amz-date", stamp)

	values := map[string]string{
		"host":                 req.URL.Host,
		"x-amz-content-sha256": payloadHash,
		"x-amz-date":           stamp,
	}
	var canonical strings.Builder
	canonical.WriteString(req.Method + "\n")
	canonical.WriteString(req.URL.EscapedPath() + "\n")
	canonical.WriteString("\n")
	for _, name := range signedHeaderNames {
		canonical.WriteString(name + ":" + values[name] + "\n")
	}
	canonical.WriteString("\n")
	signed := strings.Join(signedHeaderNames, ";")
	canonical.WriteString(signed + "\n")
	canonical.WriteString(payloadHash)

	toSign := sigV4Algorithm + "\n" + stamp + "\n" + s.scope(day) + "\n" + sha256Hex([]byte(canonical.String()))
	sig := hex.EncodeToString(hmacSHA256(s.key(day), []byte(toSign)))

	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		sigV4Algorithm, s.creds.AccessKeyID, s.scope(day), signed, sig))
}

// key derives the per-day signing key.
func (s signer) key(day string) []byte {
	k := []byte("AWS4" + s.creds.SecretAccessKey)
	for _, part := range []string{day, s.region, s.service, "aws4_request"} {
		k = hmacSHA256(k, []byte(part))
	}
	return k
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write(data)
	return h.Sum(nil)
}
