package signing

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"go.mozilla.org/pkcs7"

	"github.com/americanoutlaws/dubai/internal/domain/pass"
)

// Signer creates detached signatures over manifest bytes.
// It holds no identity, so a single Signer is safe for concurrent use with any number of identities.
type Signer struct {
	// intermediate is embedded next to the signer certificate.
	intermediate *x509.Certificate
	// digestAlgorithm is the message digest of the SignerInfo.
	digestAlgorithm asn1.ObjectIdentifier
}

// Option configures a Signer.
type Option func(*Signer)

// WithIntermediate replaces the embedded WWDR certificate, mostly for tests with a private CA.
func WithIntermediate(cert *x509.Certificate) Option {
	return func(s *Signer) {
		s.intermediate = cert
	}
}

// WithDigestAlgorithm selects the SignerInfo digest (SHA-256 by default).
func WithDigestAlgorithm(oid asn1.ObjectIdentifier) Option {
	return func(s *Signer) {
		s.digestAlgorithm = oid
	}
}

// NewSigner returns a Signer embedding the WWDR intermediate unless overridden.
func NewSigner(options ...Option) (*Signer, error) {
	s := &Signer{
		digestAlgorithm: pkcs7.OIDDigestAlgorithmSHA256,
	}

	for _, option := range options {
		option(s)
	}

	if s.intermediate == nil {
		cert, err := WWDRCertificate()
		if err != nil {
			return nil, fmt.Errorf("load WWDR certificate: %w", err)
		}

		s.intermediate = cert
	}

	return s, nil
}

// Intermediate returns the certificate embedded next to the signer certificate.
func (s *Signer) Intermediate() *x509.Certificate {
	return s.intermediate
}

// Sign decodes the identity and returns a DER encoded, detached PKCS#7 signature of manifest.
func (s *Signer) Sign(manifest []byte, id Identity) ([]byte, error) {
	creds, err := LoadIdentity(id)
	if err != nil {
		return nil, err
	}

	return s.SignWith(manifest, creds)
}

// SignWith signs manifest with already decoded credentials.
func (s *Signer) SignWith(manifest []byte, creds *Credentials) ([]byte, error) {
	signedData, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, fmt.Errorf("create signed data: %w: %w", pass.ErrSignatureEncoding, err)
	}

	signedData.SetDigestAlgorithm(s.digestAlgorithm)

	// The intermediate is attached as a plain certificate: the signer does not
	// have to be issued by it for the SignedData to be well formed.
	if err = signedData.AddSigner(creds.Certificate, creds.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("add signer: %w: %w", pass.ErrBadCredentials, err)
	}

	signedData.AddCertificate(s.intermediate)

	signedData.Detach()

	der, err := signedData.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish signed data: %w: %w", pass.ErrSignatureEncoding, err)
	}

	return NormalizeSignature(der)
}
