package pki

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestOriginCAClientIssueCertificate(t *testing.T) {
	issuer, err := NewSelfSignedIssuer("Test Origin CA", 365)
	assert.NilError(t, err)

	var gotReq certificateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Method, http.MethodPost)
		assert.Equal(t, r.URL.Path, "/certificates")
		assert.Equal(t, r.Header.Get("X-Auth-User-Service-Key"), "v1.0-test-key")

		assert.NilError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		// sign something for the requested hostnames so the response
		// carries a real certificate
		certPEM, _, err := issuer.IssueCertificate(r.Context(), gotReq.Hostnames, 90)
		assert.NilError(t, err)

		resp := map[string]interface{}{
			"success": true,
			"result": map[string]interface{}{
				"id":          "abc123",
				"certificate": string(certPEM),
			},
		}
		assert.NilError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewOriginCAClient(OriginCAConfig{
		ServiceKey: "v1.0-test-key",
		BaseURL:    srv.URL,
	})

	certPEM, keyPEM, err := client.IssueCertificate(context.Background(), []string{"example.com", "www.example.com"}, 5475)
	assert.NilError(t, err)

	assert.Equal(t, gotReq.RequestType, RequestTypeECC)
	assert.Equal(t, gotReq.RequestedValidity, 5475)
	assert.DeepEqual(t, gotReq.Hostnames, []string{"example.com", "www.example.com"})

	block, _ := pem.Decode([]byte(gotReq.CSR))
	assert.Assert(t, block != nil)
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	assert.NilError(t, err)
	assert.Equal(t, csr.Subject.CommonName, "example.com")
	assert.Assert(t, is.Len(csr.DNSNames, 2))

	cert, err := ParseLeafCertificate(certPEM)
	assert.NilError(t, err)
	assert.Equal(t, cert.Subject.CommonName, "example.com")

	keyBlock, _ := pem.Decode(keyPEM)
	assert.Assert(t, keyBlock != nil)
	assert.Equal(t, keyBlock.Type, "PRIVATE KEY")
}

func TestOriginCAClientErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		resp := map[string]interface{}{
			"success": false,
			"errors": []map[string]interface{}{
				{"code": 1010, "message": "Authentication error"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewOriginCAClient(OriginCAConfig{BaseURL: srv.URL})

	_, _, err := client.IssueCertificate(context.Background(), []string{"example.com"}, 90)
	assert.ErrorContains(t, err, "Authentication error")
}

func TestOriginCAClientCACertificate(t *testing.T) {
	issuer, err := NewSelfSignedIssuer("Test Origin CA", 365)
	assert.NilError(t, err)

	caPEM, err := issuer.CACertificate(context.Background())
	assert.NilError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(caPEM)
	}))
	defer srv.Close()

	client := NewOriginCAClient(OriginCAConfig{CAURL: srv.URL})

	got, err := client.CACertificate(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, got, caPEM)

	cert, err := ParseLeafCertificate(got)
	assert.NilError(t, err)
	assert.Assert(t, cert.IsCA)
}
