// Package certinstall materializes certificate material on disk. Writes are
// atomic: content goes to a temp file in the target directory, permissions
// are set before the file becomes visible, and an atomic rename puts it in
// place. A reader never observes a partially written file.
package certinstall

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/logging"
)

// Result reports whether an operation modified the installed state.
type Result int

const (
	Unchanged Result = iota
	Changed
)

func (r Result) String() string {
	if r == Changed {
		return "changed"
	}
	return "unchanged"
}

// ErrPartialWrite indicates a temp file was written but could not be renamed
// into place. The final file is untouched; the operation can be retried.
var ErrPartialWrite = errors.New("temp file written but rename failed")

const (
	certMode = fs.FileMode(0o644)
	keyMode  = fs.FileMode(0o600)
)

// InstalledState names the file slots managed on the target host.
type InstalledState struct {
	CACertPath     string `yaml:"caCertPath" config:"ca-cert-path"`
	OriginCertPath string `yaml:"originCertPath" config:"origin-cert-path"`
	OriginKeyPath  string `yaml:"originKeyPath" config:"origin-key-path"`
	DHParamsPath   string `yaml:"dhParamsPath" config:"dh-params-path"`
}

// Fingerprint computes the content hash of the three certificate files on
// disk. It returns "" when any of the files is missing, which always
// compares unequal to a bundle fingerprint.
func (s InstalledState) Fingerprint() (string, error) {
	ca, err := os.ReadFile(s.CACertPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %q: %w", s.CACertPath, err)
	}

	cert, err := os.ReadFile(s.OriginCertPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %q: %w", s.OriginCertPath, err)
	}

	key, err := os.ReadFile(s.OriginKeyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %q: %w", s.OriginKeyPath, err)
	}

	return Fingerprint(ca, cert, key), nil
}

// Fingerprint hashes the three PEM blobs. Each blob is length prefixed so
// moving bytes across a blob boundary always changes the hash.
func Fingerprint(caPEM, certPEM, keyPEM []byte) string {
	h := sha256.New()

	for _, b := range [][]byte{caPEM, certPEM, keyPEM} {
		_ = binary.Write(h, binary.BigEndian, uint64(len(b)))
		h.Write(b)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Installer writes certificate material to the slots in State.
type Installer struct {
	State InstalledState

	// GenerateDHParams produces a PEM encoded DH parameter file of the given
	// strength. Defaults to shelling out to openssl.
	GenerateDHParams DHGenerator
}

func NewInstaller(state InstalledState) *Installer {
	return &Installer{
		State:            state,
		GenerateDHParams: OpenSSLDHGenerator,
	}
}

// Install writes the three certificate files if their content differs from
// what is already on disk. The write order is CA cert, origin cert, origin
// key, so a partial failure never leaves a key without its certificate.
func (in *Installer) Install(caPEM, certPEM, keyPEM []byte) (Result, error) {
	want := Fingerprint(caPEM, certPEM, keyPEM)

	have, err := in.State.Fingerprint()
	if err != nil {
		return Unchanged, err
	}

	if have == want {
		logging.Debugf("certificate material already current, fingerprint %s", want)
		return Unchanged, nil
	}

	slots := []struct {
		path string
		data []byte
		mode fs.FileMode
	}{
		{in.State.CACertPath, caPEM, certMode},
		{in.State.OriginCertPath, certPEM, certMode},
		{in.State.OriginKeyPath, keyPEM, keyMode},
	}

	for _, slot := range slots {
		if err := writeFileAtomic(slot.path, slot.data, slot.mode); err != nil {
			return Unchanged, err
		}

		logging.Debugf("wrote %s", slot.path)
	}

	return Changed, nil
}

// writeFileAtomic writes data to a temp file in the same directory as path,
// applies mode before the file is visible under its final name, then renames
// it into place.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %q: %w", dir, err)
	}

	defer func() {
		// best effort cleanup; the temp file is gone after a successful rename
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %q: %w", tmp.Name(), err)
	}

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %q: %w", tmp.Name(), err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %q: %v: %w", path, err, ErrPartialWrite)
	}

	return nil
}
