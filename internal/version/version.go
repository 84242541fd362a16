package version

import (
	"fmt"
	"time"

	"github.com/americanoutlaws/dubai/internal/signing"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// Trust describes the embedded WWDR intermediate certificate.
func Trust() string {
	cert, err := signing.WWDRCertificate()
	if err != nil {
		return fmt.Sprintf("wwdr %s: %v", signing.WWDRCertificateVersion, err)
	}

	return fmt.Sprintf("wwdr %s: valid until %s", signing.WWDRCertificateVersion, cert.NotAfter.UTC().Format(time.DateOnly))
}
