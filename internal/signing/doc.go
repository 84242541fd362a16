// Package signing produces the detached PKCS#7 signature of a pass manifest.
//
// The signer identity is a PKCS#12 bundle plus its passphrase, decoded
// fresh on every call. The resulting SignedData carries the signer
// certificate and the Apple WWDR intermediate, holds no content and is
// DER encoded.
package signing
