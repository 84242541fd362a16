package signingtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/americanoutlaws/dubai/internal/signing"
)

// keyBits keeps test key generation fast.
const keyBits = 2048

// Identity bundles a generated PKCS#12 identity with the certificates behind it.
type Identity struct {
	signing.Identity

	// CA signs Certificate and stands in for the WWDR intermediate.
	CA *x509.Certificate
	// Certificate is the signer certificate stored in the bundle.
	Certificate *x509.Certificate
	// Key is the signer private key stored in the bundle.
	Key *rsa.PrivateKey
}

// Roots returns a pool trusting only the generated CA.
func (id *Identity) Roots() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(id.CA)

	return pool
}

// Signer returns a signer embedding the generated CA instead of the WWDR certificate.
func (id *Identity) Signer(t testing.TB) *signing.Signer {
	t.Helper()

	signer, err := signing.NewSigner(signing.WithIntermediate(id.CA))
	require.NoError(t, err)

	return signer
}

// NewIdentity creates a CA, a leaf certificate and a PKCS#12 bundle protected by password.
func NewIdentity(t testing.TB, password string) *Identity {
	t.Helper()

	now := time.Now()

	caKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	require.NoError(t, err)

	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Worldwide Developer Relations", Organization: []string{"Test"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	require.NoError(t, err)

	ca, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	leafKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	require.NoError(t, err)

	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "Pass Type ID: pass.com.example.test", Organization: []string{"Example"}},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, ca, &leafKey.PublicKey, caKey)
	require.NoError(t, err)

	leaf, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	bundle, err := pkcs12.Modern.Encode(leafKey, leaf, nil, password)
	require.NoError(t, err)

	return &Identity{
		Identity: signing.Identity{
			Bundle:   bundle,
			Password: password,
		},
		CA:          ca,
		Certificate: leaf,
		Key:         leafKey,
	}
}
