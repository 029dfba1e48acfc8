package provision

import (
	"fmt"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/pki"
)

// Source records where a bundle's material came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFetched   Source = "fetched"
)

// CertificateBundle is the unit of installable material: trust anchor, leaf
// certificate, and private key. Bundles are immutable once constructed; a
// new provisioning run produces a new bundle.
type CertificateBundle struct {
	caCertificate     []byte
	originCertificate []byte
	originPrivateKey  []byte
	source            Source
}

// NewCertificateBundle builds a bundle after checking that all three blobs
// are present and parse as PEM.
func NewCertificateBundle(caCert, originCert, originKey []byte, source Source) (*CertificateBundle, error) {
	for _, blob := range []struct {
		name string
		data []byte
	}{
		{"ca certificate", caCert},
		{"origin certificate", originCert},
		{"origin private key", originKey},
	} {
		if len(blob.data) == 0 {
			return nil, fmt.Errorf("%s is empty: %w", blob.name, ErrMalformedCertificate)
		}

		if !pki.IsPEM(blob.data) {
			return nil, fmt.Errorf("%s is not PEM: %w", blob.name, ErrMalformedCertificate)
		}
	}

	return &CertificateBundle{
		caCertificate:     caCert,
		originCertificate: originCert,
		originPrivateKey:  originKey,
		source:            source,
	}, nil
}

func (b *CertificateBundle) CACertificate() []byte     { return b.caCertificate }
func (b *CertificateBundle) OriginCertificate() []byte { return b.originCertificate }
func (b *CertificateBundle) OriginPrivateKey() []byte  { return b.originPrivateKey }
func (b *CertificateBundle) Source() Source            { return b.source }

// Fingerprint is the content hash used for change detection against the
// installed state.
func (b *CertificateBundle) Fingerprint() string {
	return certinstall.Fingerprint(b.caCertificate, b.originCertificate, b.originPrivateKey)
}
