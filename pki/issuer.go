// Package pki defines the certificate authority clients used to obtain
// origin certificates, and helpers for working with the PEM material they
// return.
package pki

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Issuer is implemented by a certificate authority that can issue an origin
// certificate for a set of hostnames.
type Issuer interface {
	// IssueCertificate requests a certificate covering hostnames, valid for
	// validityDays. The returned key is PKCS#8 PEM.
	IssueCertificate(ctx context.Context, hostnames []string, validityDays int) (certPEM, keyPEM []byte, err error)

	// CACertificate returns the PEM encoded trust anchor that clients signed
	// by this authority chain up to.
	CACertificate(ctx context.Context) ([]byte, error)
}

// ParseLeafCertificate decodes the first CERTIFICATE block in pemBytes.
func ParseLeafCertificate(pemBytes []byte) (*x509.Certificate, error) {
	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("no certificate found in PEM data")
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}

		return cert, nil
	}
}

// IsPEM reports whether b contains at least one well-formed PEM block.
func IsPEM(b []byte) bool {
	block, _ := pem.Decode(b)
	return block != nil
}
