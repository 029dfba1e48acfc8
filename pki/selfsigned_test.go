package pki

import (
	"context"
	"crypto/x509"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestSelfSignedIssuer(t *testing.T) {
	issuer, err := NewSelfSignedIssuer("", 0)
	assert.NilError(t, err)

	certPEM, keyPEM, err := issuer.IssueCertificate(context.Background(), []string{"example.com", "www.example.com", "10.0.0.5"}, 90)
	assert.NilError(t, err)
	assert.Assert(t, IsPEM(certPEM))
	assert.Assert(t, IsPEM(keyPEM))

	cert, err := ParseLeafCertificate(certPEM)
	assert.NilError(t, err)
	assert.Equal(t, cert.Subject.CommonName, "example.com")
	assert.DeepEqual(t, cert.DNSNames, []string{"example.com", "www.example.com"})
	assert.Assert(t, is.Len(cert.IPAddresses, 1))

	// the leaf must chain up to the issuer's trust anchor
	caPEM, err := issuer.CACertificate(context.Background())
	assert.NilError(t, err)

	roots := x509.NewCertPool()
	assert.Assert(t, roots.AppendCertsFromPEM(caPEM))

	_, err = cert.Verify(x509.VerifyOptions{Roots: roots})
	assert.NilError(t, err)
}

func TestSelfSignedIssuerNoHostnames(t *testing.T) {
	issuer, err := NewSelfSignedIssuer("", 0)
	assert.NilError(t, err)

	_, _, err = issuer.IssueCertificate(context.Background(), nil, 90)
	assert.ErrorContains(t, err, "hostname")
}

func TestParseLeafCertificateRejectsGarbage(t *testing.T) {
	_, err := ParseLeafCertificate([]byte("not a certificate"))
	assert.ErrorContains(t, err, "no certificate")
}
