// Package provision decides, per host, whether certificate material comes
// from the certificate authority API or from a secret store, and hands the
// resulting bundle to the installer.
package provision

import (
	"fmt"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
)

// Mode selects where certificate material comes from. Exactly one mode is
// valid per request; Validate rejects anything else before I/O starts.
type Mode string

const (
	// ModeGenerateViaAPI requests a new certificate from the CA API when the
	// installed one is missing, stale, or close to expiry.
	ModeGenerateViaAPI Mode = "generate"

	// ModeDeployFromStore fetches previously issued material from a secret
	// store on every run. The store is authoritative; no expiry checks are
	// done locally.
	ModeDeployFromStore Mode = "deploy"
)

// SecretNames identifies the three secrets holding certificate material in
// deploy-from-store mode.
type SecretNames struct {
	CACertificate     string `yaml:"caCertificate" config:"ca-certificate"`
	OriginCertificate string `yaml:"originCertificate" config:"origin-certificate"`
	OriginPrivateKey  string `yaml:"originPrivateKey" config:"origin-private-key"`
}

// Request describes one provisioning run for one host.
type Request struct {
	Hostname             string   `yaml:"hostname" config:"hostname"`
	AlternativeHostnames []string `yaml:"alternativeHostnames" config:"alternative-hostnames"`

	Mode Mode `yaml:"mode" config:"mode"`

	// ValidityDays applies in generate mode only.
	ValidityDays int `yaml:"validityDays" config:"validity-days"`

	// DHParamBits defaults to 2048 when zero.
	DHParamBits int `yaml:"dhParamBits" config:"dh-param-bits"`

	// SecretNames applies in deploy mode only.
	SecretNames SecretNames `yaml:"secretNames" config:"secret-names"`
}

// Hostnames returns the primary hostname followed by the alternatives, in
// request order.
func (r Request) Hostnames() []string {
	return append([]string{r.Hostname}, r.AlternativeHostnames...)
}

// Validate checks the request before any external call is made.
func (r Request) Validate() error {
	if r.Hostname == "" {
		return ValidationError{Field: "hostname", Reason: "is required"}
	}

	seen := map[string]bool{r.Hostname: true}
	for _, h := range r.AlternativeHostnames {
		if h == "" {
			return ValidationError{Field: "alternativeHostnames", Reason: "contains an empty hostname"}
		}
		if seen[h] {
			return ValidationError{Field: "alternativeHostnames", Reason: fmt.Sprintf("duplicate hostname %q", h)}
		}
		seen[h] = true
	}

	switch r.Mode {
	case ModeGenerateViaAPI:
		if r.ValidityDays <= 0 {
			return ValidationError{Field: "validityDays", Reason: "must be a positive number of days"}
		}

	case ModeDeployFromStore:
		if r.SecretNames.CACertificate == "" ||
			r.SecretNames.OriginCertificate == "" ||
			r.SecretNames.OriginPrivateKey == "" {
			return ValidationError{Field: "secretNames", Reason: "all three secret names are required"}
		}

	case "":
		return ValidationError{Field: "mode", Reason: "is required, one of generate or deploy"}

	default:
		return ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", r.Mode)}
	}

	if r.DHParamBits != 0 && r.DHParamBits < certinstall.MinDHParamBits {
		return ValidationError{
			Field:  "dhParamBits",
			Reason: fmt.Sprintf("must be at least %d", certinstall.MinDHParamBits),
		}
	}

	return nil
}

// EffectiveDHParamBits returns DHParamBits with the default applied.
func (r Request) EffectiveDHParamBits() int {
	if r.DHParamBits == 0 {
		return certinstall.MinDHParamBits
	}
	return r.DHParamBits
}
