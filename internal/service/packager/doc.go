// Package packager turns pass directories into signed .pkpass archives.
//
// The Service runs the pipeline for a single pass: collect the files,
// build the SHA-1 manifest, sign it with a PKCS#12 identity and assemble
// the ZIP archive in memory. Run is the CLI entry point handling
// configuration, the identity bundle and atomic output files, and
// RunManifest prints the manifest of a directory or an existing archive.
package packager
