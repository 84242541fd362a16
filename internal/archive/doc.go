// Package archive assembles the .pkpass ZIP file.
//
// Entries are written in a fixed order (pass.json, manifest.json,
// signature, then the auxiliary assets) into an in-memory buffer. Bytes are
// handed back only once the central directory has been written, so callers
// never see a partial archive.
package archive
