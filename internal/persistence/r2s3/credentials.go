package r2s3

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	EnvAccessKeyID     = "PROVISIONER_R2_ACCESS_KEY_ID"
	EnvSecretAccessKey = "PROVISIONER_R2_SECRET_ACCESS_KEY"
)

var ErrMissingCredentials = errors.New("missing object storage credentials")

// Credentials is an access key pair for the bucket.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

func (c Credentials) trimmed() Credentials {
	return Credentials{
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
	}
}

// Validate reports ErrMissingCredentials when either half is blank.
func (c Credentials) Validate() error {
	t := c.trimmed()
	if t.AccessKeyID == "" || t.SecretAccessKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// CredentialsFromEnv reads the key pair from PROVISIONER_R2_ACCESS_KEY_ID and
// PROVISIONER_R2_SECRET_ACCESS_KEY.
func CredentialsFromEnv() (Credentials, error) {
	c := Credentials{
		AccessKeyID:     os.Getenv(EnvAccessKeyID),
		SecretAccessKey: os.Getenv(EnvSecretAccessKey),
	}.trimmed()
	if err := c.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("%w: set %s and %s", err, EnvAccessKeyID, EnvSecretAccessKey)
	}
	return c, nil
}
