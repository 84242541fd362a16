// Package integration holds end-to-end tests that drive the pack workflow
// against real files on disk.
package integration
