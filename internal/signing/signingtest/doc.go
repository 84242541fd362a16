// Package signingtest generates throwaway signing identities for tests.
//
// NewIdentity builds a private CA and a leaf certificate signed by it and
// packs the leaf with its key into a PKCS#12 bundle, so tests exercise the
// same decoding path as real pass type certificates.
package signingtest
