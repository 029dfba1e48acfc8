// Package secrets provides clients for the stores that hold previously
// issued certificate material: AWS Secrets Manager, AWS SSM Parameter Store,
// HashiCorp Vault, plain files, and environment variables.
package secrets

import (
	"encoding/base64"
	"fmt"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal"
)

// ErrNotFound is returned by GetSecret when the named secret does not exist
// in the store.
var ErrNotFound = fmt.Errorf("secret %w", internal.ErrNotFound)

// SecretStorage is implemented by a store that holds arbitrary named secrets.
type SecretStorage interface {
	SetSecret(name string, secret []byte) error
	GetSecret(name string) (secret []byte, err error)
}

// GenericConfig holds encoding options shared by all providers. Stores that
// cannot hold raw bytes (environment variables, some parameter stores) keep
// the PEM material base64 encoded.
type GenericConfig struct {
	Base64           bool `yaml:"base64" config:"base64"`
	Base64URLEncoded bool `yaml:"base64UrlEncoded" config:"base64-url-encoded"`
	Base64Raw        bool `yaml:"base64Raw" config:"base64-raw"`
}

func (c GenericConfig) encoder() *base64.Encoding {
	if c.Base64URLEncoded {
		if c.Base64Raw {
			return base64.RawURLEncoding
		}
		return base64.URLEncoding
	}

	if c.Base64Raw {
		return base64.RawStdEncoding
	}
	return base64.StdEncoding
}

func (c GenericConfig) encode(secret []byte) []byte {
	if !c.Base64 {
		b := make([]byte, len(secret))
		copy(b, secret)
		return b
	}

	b := make([]byte, c.encoder().EncodedLen(len(secret)))
	c.encoder().Encode(b, secret)
	return b
}

func (c GenericConfig) decode(b []byte) ([]byte, error) {
	if !c.Base64 {
		return b, nil
	}

	result := make([]byte, c.encoder().DecodedLen(len(b)))

	written, err := c.encoder().Decode(result, b)
	if err != nil {
		return nil, fmt.Errorf("base64 decoding: %w", err)
	}

	return result[:written], nil
}

// Config selects and configures a secret store backend.
type Config struct {
	// Kind is one of "awssm", "awsssm", "vault", "file", "env".
	Kind string `yaml:"kind" config:"kind"`

	AWS   AWSConfig     `yaml:"aws" config:"aws"`
	Vault VaultConfig   `yaml:"vault" config:"vault"`
	File  FileConfig    `yaml:"file" config:"file"`
	Env   GenericConfig `yaml:"env" config:"env"`
}

// NewFromConfig builds the secret store named by cfg.Kind.
func NewFromConfig(cfg Config) (SecretStorage, error) {
	switch cfg.Kind {
	case "awssm":
		return NewAWSSecretsManagerFromConfig(cfg.AWS)
	case "awsssm":
		return NewAWSSSMFromConfig(AWSSSMConfig{AWSConfig: cfg.AWS})
	case "vault":
		return NewVaultSecretProviderFromConfig(cfg.Vault)
	case "file":
		return NewFileSecretProviderFromConfig(cfg.File), nil
	case "env":
		return NewEnvSecretProviderFromConfig(cfg.Env), nil
	default:
		return nil, fmt.Errorf("secret store kind %q: %w", cfg.Kind, internal.ErrNotImplemented)
	}
}
