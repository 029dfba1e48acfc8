package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/pki"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/secrets"
)

// countingIssuer wraps a real issuer and records how many certificates were
// requested.
type countingIssuer struct {
	pki.Issuer

	issued int
}

func (c *countingIssuer) IssueCertificate(ctx context.Context, hostnames []string, validityDays int) ([]byte, []byte, error) {
	c.issued++
	return c.Issuer.IssueCertificate(ctx, hostnames, validityDays)
}

func testState(t *testing.T) certinstall.InstalledState {
	t.Helper()
	dir := t.TempDir()

	return certinstall.InstalledState{
		CACertPath:     filepath.Join(dir, "origin-pull-ca.pem"),
		OriginCertPath: filepath.Join(dir, "origin.pem"),
		OriginKeyPath:  filepath.Join(dir, "origin.key"),
		DHParamsPath:   filepath.Join(dir, "dhparams.pem"),
	}
}

func testIssuer(t *testing.T) *countingIssuer {
	t.Helper()

	issuer, err := pki.NewSelfSignedIssuer("Test Origin CA", 365)
	require.NoError(t, err)

	return &countingIssuer{Issuer: issuer}
}

func generateRequest() Request {
	return Request{
		Hostname:             "example.com",
		AlternativeHostnames: []string{"www.example.com"},
		Mode:                 ModeGenerateViaAPI,
		ValidityDays:         5475,
	}
}

func TestRequestValidate(t *testing.T) {
	t.Run("valid generate", func(t *testing.T) {
		require.NoError(t, generateRequest().Validate())
	})

	t.Run("valid deploy", func(t *testing.T) {
		req := Request{
			Hostname: "example.com",
			Mode:     ModeDeployFromStore,
			SecretNames: SecretNames{
				CACertificate:     "aop-ca",
				OriginCertificate: "origin-cert",
				OriginPrivateKey:  "origin-key",
			},
		}
		require.NoError(t, req.Validate())
	})

	type testCase struct {
		name  string
		req   Request
		field string
	}

	run := func(t *testing.T, tc testCase) {
		err := tc.req.Validate()
		require.Error(t, err)

		var verr ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, tc.field, verr.Field)
	}

	testCases := []testCase{
		{
			name:  "missing hostname",
			req:   Request{Mode: ModeGenerateViaAPI, ValidityDays: 90},
			field: "hostname",
		},
		{
			name:  "missing mode",
			req:   Request{Hostname: "example.com"},
			field: "mode",
		},
		{
			name:  "unknown mode",
			req:   Request{Hostname: "example.com", Mode: "both"},
			field: "mode",
		},
		{
			name:  "generate without validity",
			req:   Request{Hostname: "example.com", Mode: ModeGenerateViaAPI},
			field: "validityDays",
		},
		{
			name: "deploy without secret names",
			req: Request{
				Hostname: "example.com",
				Mode:     ModeDeployFromStore,
				SecretNames: SecretNames{
					CACertificate:     "aop-ca",
					OriginCertificate: "origin-cert",
				},
			},
			field: "secretNames",
		},
		{
			name: "duplicate hostnames",
			req: Request{
				Hostname:             "example.com",
				AlternativeHostnames: []string{"example.com"},
				Mode:                 ModeGenerateViaAPI,
				ValidityDays:         90,
			},
			field: "alternativeHostnames",
		},
		{
			name: "weak dh params",
			req: Request{
				Hostname:     "example.com",
				Mode:         ModeGenerateViaAPI,
				ValidityDays: 90,
				DHParamBits:  1024,
			},
			field: "dhParamBits",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run(t, tc)
		})
	}
}

func TestValidationHappensBeforeAnyExternalCall(t *testing.T) {
	// nil clients: any network or store call would panic
	p := &Provisioner{State: testState(t)}

	_, err := p.Provision(context.Background(), Request{Hostname: "example.com"})

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestProvisionGenerateViaAPI(t *testing.T) {
	issuer := testIssuer(t)
	state := testState(t)

	p := &Provisioner{Issuer: issuer, State: state}

	bundle, err := p.Provision(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Equal(t, SourceGenerated, bundle.Source())
	require.Equal(t, 1, issuer.issued)

	// fingerprint matches a hash of exactly the returned material
	want := certinstall.Fingerprint(
		bundle.CACertificate(), bundle.OriginCertificate(), bundle.OriginPrivateKey())
	require.Equal(t, want, bundle.Fingerprint())

	cert, err := pki.ParseLeafCertificate(bundle.OriginCertificate())
	require.NoError(t, err)
	require.Equal(t, "example.com", cert.Subject.CommonName)
	require.Contains(t, cert.DNSNames, "www.example.com")
}

func TestProvisionGenerateSkipsCAWhenCurrent(t *testing.T) {
	issuer := testIssuer(t)
	state := testState(t)

	p := &Provisioner{Issuer: issuer, State: state}
	installer := certinstall.NewInstaller(state)

	bundle, err := p.Provision(context.Background(), generateRequest())
	require.NoError(t, err)

	_, err = installer.Install(
		bundle.CACertificate(), bundle.OriginCertificate(), bundle.OriginPrivateKey())
	require.NoError(t, err)

	// second run reuses the unexpired installed certificate
	again, err := p.Provision(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Equal(t, 1, issuer.issued)
	require.Equal(t, bundle.Fingerprint(), again.Fingerprint())
	require.Equal(t, SourceGenerated, again.Source())
}

func TestProvisionGenerateRefreshesNearExpiry(t *testing.T) {
	issuer := testIssuer(t)
	state := testState(t)

	req := generateRequest()
	req.ValidityDays = 10 // inside the 30 day refresh threshold

	p := &Provisioner{Issuer: issuer, State: state}
	installer := certinstall.NewInstaller(state)

	bundle, err := p.Provision(context.Background(), req)
	require.NoError(t, err)

	_, err = installer.Install(
		bundle.CACertificate(), bundle.OriginCertificate(), bundle.OriginPrivateKey())
	require.NoError(t, err)

	_, err = p.Provision(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, issuer.issued)
}

func TestProvisionGenerateRefreshesOnHostnameChange(t *testing.T) {
	issuer := testIssuer(t)
	state := testState(t)

	p := &Provisioner{Issuer: issuer, State: state}
	installer := certinstall.NewInstaller(state)

	bundle, err := p.Provision(context.Background(), generateRequest())
	require.NoError(t, err)

	_, err = installer.Install(
		bundle.CACertificate(), bundle.OriginCertificate(), bundle.OriginPrivateKey())
	require.NoError(t, err)

	req := generateRequest()
	req.AlternativeHostnames = append(req.AlternativeHostnames, "api.example.com")

	_, err = p.Provision(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, issuer.issued)
}

func deployRequest() Request {
	return Request{
		Hostname: "example.com",
		Mode:     ModeDeployFromStore,
		SecretNames: SecretNames{
			CACertificate:     "aop-ca.pem",
			OriginCertificate: "origin-cert.pem",
			OriginPrivateKey:  "origin-key.pem",
		},
	}
}

func deployStore(t *testing.T, names ...string) secrets.SecretStorage {
	t.Helper()

	issuer, err := pki.NewSelfSignedIssuer("Test Origin CA", 365)
	require.NoError(t, err)

	caPEM, err := issuer.CACertificate(context.Background())
	require.NoError(t, err)

	certPEM, keyPEM, err := issuer.IssueCertificate(context.Background(), []string{"example.com"}, 90)
	require.NoError(t, err)

	store := secrets.NewFileSecretProviderFromConfig(secrets.FileConfig{Path: t.TempDir()})

	values := map[string][]byte{
		"aop-ca.pem":      caPEM,
		"origin-cert.pem": certPEM,
		"origin-key.pem":  keyPEM,
	}

	for _, name := range names {
		require.NoError(t, store.SetSecret(name, values[name]))
	}

	return store
}

func TestProvisionDeployFromStore(t *testing.T) {
	store := deployStore(t, "aop-ca.pem", "origin-cert.pem", "origin-key.pem")

	p := &Provisioner{Secrets: store, State: testState(t)}

	bundle, err := p.Provision(context.Background(), deployRequest())
	require.NoError(t, err)
	require.Equal(t, SourceFetched, bundle.Source())
}

func TestProvisionDeployMissingSecret(t *testing.T) {
	// origin-key.pem is never stored
	store := deployStore(t, "aop-ca.pem", "origin-cert.pem")

	state := testState(t)
	p := &Provisioner{Secrets: store, State: state}

	runner := &Runner{
		Provisioner: p,
		Installer:   certinstall.NewInstaller(state),
	}

	_, err := runner.Run(context.Background(), deployRequest())
	require.ErrorIs(t, err, ErrSecretFetch)

	// the installer was never invoked
	_, err = os.Stat(state.OriginCertPath)
	require.True(t, os.IsNotExist(err))
}

func TestProvisionDeployMalformedSecret(t *testing.T) {
	store := deployStore(t, "aop-ca.pem", "origin-cert.pem")
	require.NoError(t, store.SetSecret("origin-key.pem", []byte("this is not pem")))

	p := &Provisioner{Secrets: store, State: testState(t)}

	_, err := p.Provision(context.Background(), deployRequest())
	require.ErrorIs(t, err, ErrMalformedCertificate)
}

func TestBundleRejectsEmptyMaterial(t *testing.T) {
	_, err := NewCertificateBundle(nil, []byte("x"), []byte("y"), SourceFetched)
	require.ErrorIs(t, err, ErrMalformedCertificate)
}
