package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/logging"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/pki"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/secrets"
)

// Provisioner produces a CertificateBundle for a request, delegating to
// exactly one of its two clients based on the request mode. It performs no
// retries; failed runs are safe to re-invoke.
type Provisioner struct {
	Issuer  pki.Issuer
	Secrets secrets.SecretStorage

	State certinstall.InstalledState

	// RefreshThreshold defaults to DefaultRefreshThreshold when zero.
	RefreshThreshold time.Duration
}

// Provision validates the request and obtains a bundle from the CA API, the
// secret store, or the material already on disk.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*CertificateBundle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	switch req.Mode {
	case ModeGenerateViaAPI:
		return p.generate(ctx, req)
	case ModeDeployFromStore:
		return p.fetch(ctx, req)
	}

	// Validate rejects every other mode
	panic("unreachable mode " + string(req.Mode))
}

func (p *Provisioner) generate(ctx context.Context, req Request) (*CertificateBundle, error) {
	threshold := p.RefreshThreshold
	if threshold == 0 {
		threshold = DefaultRefreshThreshold
	}

	refresh, reason := needsRefresh(p.State, req, threshold)
	if !refresh {
		logging.Infof("installed certificate for %s is current, skipping CA request", req.Hostname)
		return p.bundleFromDisk()
	}

	logging.Infof("requesting certificate for %s: %s", req.Hostname, reason)

	caCert, err := p.Issuer.CACertificate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCARequest, err)
	}

	cert, key, err := p.Issuer.IssueCertificate(ctx, req.Hostnames(), req.ValidityDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCARequest, err)
	}

	bundle, err := NewCertificateBundle(caCert, cert, key, SourceGenerated)
	if err != nil {
		return nil, fmt.Errorf("certificate authority returned bad material: %w", err)
	}

	return bundle, nil
}

// bundleFromDisk reconstructs the current bundle from the installed files.
func (p *Provisioner) bundleFromDisk() (*CertificateBundle, error) {
	caCert, err := os.ReadFile(p.State.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("reading installed ca certificate: %w", err)
	}

	cert, err := os.ReadFile(p.State.OriginCertPath)
	if err != nil {
		return nil, fmt.Errorf("reading installed certificate: %w", err)
	}

	key, err := os.ReadFile(p.State.OriginKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading installed private key: %w", err)
	}

	return NewCertificateBundle(caCert, cert, key, SourceGenerated)
}

func (p *Provisioner) fetch(ctx context.Context, req Request) (*CertificateBundle, error) {
	logging.Infof("fetching certificate material for %s from the secret store", req.Hostname)

	caCert, err := p.fetchSecret(req.SecretNames.CACertificate)
	if err != nil {
		return nil, err
	}

	cert, err := p.fetchSecret(req.SecretNames.OriginCertificate)
	if err != nil {
		return nil, err
	}

	key, err := p.fetchSecret(req.SecretNames.OriginPrivateKey)
	if err != nil {
		return nil, err
	}

	return NewCertificateBundle(caCert, cert, key, SourceFetched)
}

// fetchSecret distinguishes a missing or empty secret (ErrSecretFetch) from
// one that is present but not PEM (ErrMalformedCertificate, raised later by
// NewCertificateBundle).
func (p *Provisioner) fetchSecret(name string) ([]byte, error) {
	value, err := p.Secrets.GetSecret(name)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, fmt.Errorf("secret %q not found: %w", name, ErrSecretFetch)
		}

		return nil, fmt.Errorf("secret %q: %v: %w", name, err, ErrSecretFetch)
	}

	if len(value) == 0 {
		return nil, fmt.Errorf("secret %q is empty: %w", name, ErrSecretFetch)
	}

	return value, nil
}
