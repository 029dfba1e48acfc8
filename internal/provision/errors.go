package provision

import (
	"errors"
	"fmt"
)

var (
	// ErrCARequest wraps failures talking to the certificate authority API.
	ErrCARequest = errors.New("certificate authority request failed")

	// ErrSecretFetch wraps missing or empty secrets in deploy-from-store
	// mode.
	ErrSecretFetch = errors.New("secret fetch failed")

	// ErrMalformedCertificate indicates material from any source did not
	// parse as PEM.
	ErrMalformedCertificate = errors.New("malformed certificate material")
)

// ValidationError reports a malformed request. It is always returned before
// any network or disk I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}
