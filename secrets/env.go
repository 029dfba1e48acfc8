package secrets

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// implements env storage for secret config

type EnvSecretProvider struct {
	GenericConfig
}

func NewEnvSecretProviderFromConfig(cfg GenericConfig) *EnvSecretProvider {
	return &EnvSecretProvider{
		GenericConfig: cfg,
	}
}

var _ SecretStorage = &EnvSecretProvider{}

var invalidNameChars = regexp.MustCompile(`[^\w\d-]`)

func (fp *EnvSecretProvider) SetSecret(name string, secret []byte) error {
	if strings.Contains(name, "$") {
		return errors.New("env secrets cannot contain $")
	}

	name = invalidNameChars.ReplaceAllString(name, "_")

	if err := os.Setenv(name, string(fp.encode(secret))); err != nil {
		return fmt.Errorf("setenv: %w", err)
	}

	return nil
}

func (fp *EnvSecretProvider) GetSecret(name string) (secret []byte, err error) {
	var b []byte
	if strings.Contains(name, "$") {
		b = []byte(os.ExpandEnv(name))
	} else {
		name = invalidNameChars.ReplaceAllString(name, "_")
		b = []byte(os.Getenv(name))

		if _, present := os.LookupEnv(name); !present {
			return nil, ErrNotFound
		}
	}

	result, err := fp.decode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", name, err)
	}

	return result, nil
}
