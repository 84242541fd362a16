// Package assets reads the files of a pass from a directory.
//
// The DirectoryRepository enumerates the direct entries of a pass
// directory, separates pass.json from the auxiliary assets and exposes a
// Collector interface that the packager service depends on.
package assets
