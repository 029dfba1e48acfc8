package pki

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultAPIBaseURL = "https://api.cloudflare.com/client/v4"
	defaultCAURL      = "https://developers.cloudflare.com/ssl/static/authenticated_origin_pull_ca.pem"

	// request_type values accepted by the origin CA API
	RequestTypeECC = "origin-ecc"
	RequestTypeRSA = "origin-rsa"
)

type OriginCAConfig struct {
	// ServiceKey is the origin CA service key, sent as the
	// X-Auth-User-Service-Key header.
	ServiceKey string `yaml:"serviceKey" config:"service-key"`

	BaseURL     string        `yaml:"baseURL" config:"base-url"`
	CAURL       string        `yaml:"caURL" config:"ca-url"`
	RequestType string        `yaml:"requestType" config:"request-type"`
	Timeout     time.Duration `yaml:"timeout" config:"timeout"`
}

// OriginCAClient requests origin certificates from the Cloudflare origin CA
// API. The private key and CSR are generated locally; only the CSR leaves
// the host.
type OriginCAClient struct {
	OriginCAConfig

	HTTP *http.Client
}

var _ Issuer = &OriginCAClient{}

func NewOriginCAClient(cfg OriginCAConfig) *OriginCAClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBaseURL
	}

	if cfg.CAURL == "" {
		cfg.CAURL = defaultCAURL
	}

	if cfg.RequestType == "" {
		cfg.RequestType = RequestTypeECC
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &OriginCAClient{
		OriginCAConfig: cfg,
		HTTP: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type certificateRequest struct {
	Hostnames         []string `json:"hostnames"`
	RequestType       string   `json:"request_type"`
	RequestedValidity int      `json:"requested_validity"`
	CSR               string   `json:"csr"`
}

type certificateResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result struct {
		ID          string `json:"id"`
		Certificate string `json:"certificate"`
	} `json:"result"`
}

func (c *OriginCAClient) IssueCertificate(ctx context.Context, hostnames []string, validityDays int) ([]byte, []byte, error) {
	if len(hostnames) == 0 {
		return nil, nil, fmt.Errorf("at least one hostname is required")
	}

	csrPEM, keyPEM, err := createCSR(hostnames, c.RequestType)
	if err != nil {
		return nil, nil, err
	}

	body, err := json.Marshal(certificateRequest{
		Hostnames:         hostnames,
		RequestType:       c.RequestType,
		RequestedValidity: validityDays,
		CSR:               string(csrPEM),
	})
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/certificates", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-User-Service-Key", c.ServiceKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("origin ca: request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("origin ca: reading response: %w", err)
	}

	var parsed certificateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, nil, fmt.Errorf("origin ca: decoding response: %w", err)
	}

	if !parsed.Success {
		if len(parsed.Errors) > 0 {
			return nil, nil, fmt.Errorf("origin ca: %d: %s", parsed.Errors[0].Code, parsed.Errors[0].Message)
		}

		return nil, nil, fmt.Errorf("origin ca: request failed with status %v", res.StatusCode)
	}

	certPEM := []byte(parsed.Result.Certificate)
	if !IsPEM(certPEM) {
		return nil, nil, fmt.Errorf("origin ca: response certificate is not PEM")
	}

	return certPEM, keyPEM, nil
}

// CACertificate fetches the authenticated origin pull trust anchor.
func (c *OriginCAClient) CACertificate(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.CAURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("origin ca: fetching trust anchor: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("origin ca: fetching trust anchor: status %v", res.StatusCode)
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("origin ca: reading trust anchor: %w", err)
	}

	if !IsPEM(raw) {
		return nil, fmt.Errorf("origin ca: trust anchor is not PEM")
	}

	return raw, nil
}

// createCSR generates a private key and a certificate signing request for
// hostnames. The first hostname becomes the subject common name.
func createCSR(hostnames []string, requestType string) (csrPEM, keyPEM []byte, err error) {
	var key interface{}

	switch requestType {
	case RequestTypeRSA:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	default:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("generating key: %w", err)
	}

	template := &x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName: hostnames[0],
		},
	}

	for _, h := range hostnames {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	csr, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating csr: %w", err)
	}

	csrPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: csr,
	})

	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshalling private key: %w", err)
	}

	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: keyBytes,
	})

	return csrPEM, keyPEM, nil
}
