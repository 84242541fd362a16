// Package manifest computes the digest manifest of a pass.
//
// Every file of the pass, pass.json included, is hashed with SHA-1 and
// recorded as a lowercase hex string. The manifest keeps insertion order so
// that the same files always serialize to byte-identical JSON.
package manifest
