package secrets

import (
	"fmt"
	"os"
	"path"
)

// implements file storage for secret config

type FileConfig struct {
	GenericConfig
	Path string `yaml:"path" config:"path"`
}

type FileSecretProvider struct {
	FileConfig
}

func NewFileSecretProviderFromConfig(cfg FileConfig) *FileSecretProvider {
	return &FileSecretProvider{
		FileConfig: cfg,
	}
}

var _ SecretStorage = &FileSecretProvider{}

func (fp *FileSecretProvider) SetSecret(name string, secret []byte) error {
	fullPath := name

	if len(fp.Path) > 0 {
		fullPath = path.Join(fp.Path, name)
	}

	dir := path.Dir(fullPath)
	if len(dir) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %q: %w", dir, err)
		}
	}

	// secrets are key material, keep them out of reach of other users
	if err := os.WriteFile(fullPath, fp.encode(secret), 0o600); err != nil {
		return fmt.Errorf("writing file %q: %w", fullPath, err)
	}

	return nil
}

func (fp *FileSecretProvider) GetSecret(name string) (secret []byte, err error) {
	fullPath := path.Join(fp.Path, name)

	b, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("reading file %q: %w", fullPath, err)
	}

	result, err := fp.decode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding file %q: %w", fullPath, err)
	}

	return result, nil
}
