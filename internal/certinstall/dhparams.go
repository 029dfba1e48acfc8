package certinstall

import (
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"os/exec"
	"strconv"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/logging"
)

// MinDHParamBits is the smallest DH parameter strength the installer will
// accept. Anything weaker is vulnerable to Logjam-style attacks.
const MinDHParamBits = 2048

// DHGenerator produces PEM encoded Diffie-Hellman parameters of at least the
// given strength.
type DHGenerator func(bits int) ([]byte, error)

// OpenSSLDHGenerator shells out to `openssl dhparam`. Generation takes
// minutes at 4096 bits, which is why existing parameters of sufficient size
// are never regenerated.
func OpenSSLDHGenerator(bits int) ([]byte, error) {
	out, err := exec.Command("openssl", "dhparam", strconv.Itoa(bits)).Output()
	if err != nil {
		return nil, fmt.Errorf("openssl dhparam %d: %w", bits, err)
	}

	return out, nil
}

// EnsureDHParams generates the DH parameter file if it is absent or weaker
// than bits. Parameters already at or above the requested strength are left
// alone.
func (in *Installer) EnsureDHParams(bits int) (Result, error) {
	if bits == 0 {
		bits = MinDHParamBits
	}

	if bits < MinDHParamBits {
		return Unchanged, fmt.Errorf("dh param strength %d is below the minimum of %d", bits, MinDHParamBits)
	}

	existing, err := os.ReadFile(in.State.DHParamsPath)
	if err == nil {
		size, sizeErr := dhParamBits(existing)
		switch {
		case sizeErr != nil:
			logging.Warnf("replacing unparseable dh params at %s: %v", in.State.DHParamsPath, sizeErr)
		case size >= bits:
			logging.Debugf("dh params at %s already %d bits", in.State.DHParamsPath, size)
			return Unchanged, nil
		default:
			logging.Warnf("dh params at %s are %d bits, below the requested %d", in.State.DHParamsPath, size, bits)
		}
	} else if !os.IsNotExist(err) {
		return Unchanged, fmt.Errorf("reading %q: %w", in.State.DHParamsPath, err)
	}

	return in.RegenerateDHParams(bits)
}

// RegenerateDHParams unconditionally generates new DH parameters and
// installs them.
func (in *Installer) RegenerateDHParams(bits int) (Result, error) {
	if bits == 0 {
		bits = MinDHParamBits
	}

	generate := in.GenerateDHParams
	if generate == nil {
		generate = OpenSSLDHGenerator
	}

	logging.Infof("generating %d bit dh params, this can take a while", bits)

	pemBytes, err := generate(bits)
	if err != nil {
		return Unchanged, err
	}

	if err := writeFileAtomic(in.State.DHParamsPath, pemBytes, certMode); err != nil {
		return Unchanged, err
	}

	return Changed, nil
}

// dhParams is the PKCS#3 DHParameter ASN.1 structure.
type dhParams struct {
	P *big.Int
	G *big.Int
}

func dhParamBits(pemBytes []byte) (int, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "DH PARAMETERS" {
		return 0, fmt.Errorf("not a DH PARAMETERS block")
	}

	var params dhParams
	if _, err := asn1.Unmarshal(block.Bytes, &params); err != nil {
		return 0, fmt.Errorf("parsing dh params: %w", err)
	}

	return params.P.BitLen(), nil
}
