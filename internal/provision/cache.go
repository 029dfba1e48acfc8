package provision

import (
	"crypto/x509"
	"os"
	"sort"
	"time"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/pki"
)

// DefaultRefreshThreshold is how close to expiry an installed certificate
// may get before generate mode requests a new one.
const DefaultRefreshThreshold = 30 * 24 * time.Hour

// needsRefresh decides whether generate mode must call the CA, or can keep
// the certificate already on disk. It reads the installed state and performs
// no writes.
func needsRefresh(state certinstall.InstalledState, req Request, threshold time.Duration) (bool, string) {
	for _, path := range []string{state.CACertPath, state.OriginCertPath, state.OriginKeyPath} {
		if _, err := os.Stat(path); err != nil {
			return true, "certificate material missing from " + path
		}
	}

	pemBytes, err := os.ReadFile(state.OriginCertPath)
	if err != nil {
		return true, "cannot read installed certificate"
	}

	cert, err := pki.ParseLeafCertificate(pemBytes)
	if err != nil {
		return true, "installed certificate does not parse"
	}

	if !sameNameSet(cert, req.Hostnames()) {
		return true, "installed certificate does not cover the requested hostnames"
	}

	if remaining := time.Until(cert.NotAfter); remaining < threshold {
		return true, "installed certificate expires in " + remaining.Truncate(time.Hour).String()
	}

	return false, ""
}

// sameNameSet compares the certificate's common name + SAN set against the
// requested hostnames, ignoring order.
func sameNameSet(cert *x509.Certificate, want []string) bool {
	names := []string{cert.Subject.CommonName}
	names = append(names, cert.DNSNames...)

	for _, ip := range cert.IPAddresses {
		names = append(names, ip.String())
	}

	return equalStrings(dedupeSorted(names), dedupeSorted(want))
}

func dedupeSorted(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))

	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}

	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
