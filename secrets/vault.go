package secrets

import (
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

var _ SecretStorage = &VaultSecretProvider{}

// VaultSecretProvider reads and writes certificate material in a Vault KV v2
// secrets engine.
type VaultSecretProvider struct {
	VaultConfig

	client *vault.Client
}

type VaultConfig struct {
	SecretMount string `yaml:"secretMount" config:"secret-mount"` // mounting point. defaults to /secret
	Token       string `yaml:"token" config:"token"`
	Namespace   string `yaml:"namespace" config:"namespace"`
	Address     string `yaml:"address" config:"address"`
}

func NewVaultConfig() VaultConfig {
	return VaultConfig{
		SecretMount: "/secret",
		Address:     "https://vault",
	}
}

func NewVaultSecretProviderFromConfig(cfg VaultConfig) (*VaultSecretProvider, error) {
	if cfg.SecretMount == "" {
		cfg.SecretMount = "/secret"
	}

	c, err := vault.NewClient(&vault.Config{
		Address: cfg.Address,
	})
	if err != nil {
		return nil, err
	}

	c.SetToken(cfg.Token)

	if len(cfg.Namespace) > 0 {
		c.SetNamespace(cfg.Namespace)
	}

	return &VaultSecretProvider{
		VaultConfig: cfg,
		client:      c,
	}, nil
}

func (v *VaultSecretProvider) GetSecret(name string) ([]byte, error) {
	name = nameEscape(name)
	path := fmt.Sprintf("%s/data/%s", v.SecretMount, name)

	sec, err := v.client.Logical().Read(path)
	if err != nil {
		return nil, err
	}

	if sec == nil || sec.Data == nil {
		return nil, ErrNotFound
	}

	data, ok := sec.Data["data"].(map[string]interface{})
	if !ok {
		return nil, ErrNotFound
	}

	if data, ok := data["data"].(string); ok {
		return []byte(data), nil
	}

	return nil, fmt.Errorf("vault: secret data is not a string")
}

func (v *VaultSecretProvider) SetSecret(name string, secret []byte) error {
	name = nameEscape(name)
	path := fmt.Sprintf("%s/data/%s", v.SecretMount, name)
	_, err := v.client.Logical().Write(path, map[string]interface{}{
		"data": map[string]interface{}{
			"data": string(secret),
		},
	})

	return err
}

func nameEscape(name string) string {
	rpl := strings.NewReplacer(
		"/", "_",
		":", "_",
	)

	return rpl.Replace(name)
}
