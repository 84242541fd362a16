package signing

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/americanoutlaws/dubai/internal/domain/pass"
)

// Identity is a passphrase-protected PKCS#12 bundle holding the pass type certificate and its key.
type Identity struct {
	// Bundle is the raw PKCS#12 (.p12) content.
	Bundle []byte
	// Password decrypts Bundle.
	Password string
}

// Credentials are the decoded parts of an Identity.
type Credentials struct {
	// Certificate is the signer (pass type ID) certificate.
	Certificate *x509.Certificate
	// PrivateKey matches Certificate.
	PrivateKey crypto.Signer
	// Chain holds additional certificates found in the bundle. They are not embedded in signatures.
	Chain []*x509.Certificate
}

// errKeyMismatch indicates that the bundle key does not belong to its certificate.
var errKeyMismatch = errors.New("private key does not match certificate")

// String hides the bundle and the passphrase.
func (id Identity) String() string {
	return fmt.Sprintf("identity(%d bytes)", len(id.Bundle))
}

// ReadIdentityFile loads a PKCS#12 bundle from disk. The bundle is not decoded here.
func ReadIdentityFile(path, password string) (Identity, error) {
	bundle, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Identity{}, fmt.Errorf("read identity bundle: %w: %w", pass.ErrUnreadableFile, err)
	}

	return Identity{Bundle: bundle, Password: password}, nil
}

// LoadIdentity decrypts and parses the bundle with its passphrase.
// Every failure is reported as pass.ErrBadCredentials.
func LoadIdentity(id Identity) (*Credentials, error) {
	if len(id.Bundle) == 0 {
		return nil, fmt.Errorf("empty identity bundle: %w", pass.ErrBadCredentials)
	}

	key, cert, chain, err := pkcs12.DecodeChain(id.Bundle, id.Password)
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, fmt.Errorf("decode identity bundle: incorrect passphrase: %w", pass.ErrBadCredentials)
	}

	if err != nil {
		return nil, fmt.Errorf("decode identity bundle: %w: %w", pass.ErrBadCredentials, err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T: %w", key, pass.ErrBadCredentials)
	}

	public, ok := cert.PublicKey.(interface{ Equal(x crypto.PublicKey) bool })
	if !ok || !public.Equal(signer.Public()) {
		return nil, fmt.Errorf("%w: %w", errKeyMismatch, pass.ErrBadCredentials)
	}

	return &Credentials{
		Certificate: cert,
		PrivateKey:  signer,
		Chain:       chain,
	}, nil
}
