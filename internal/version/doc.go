// Package version exposes build metadata of the dubai binary.
//
// Version, Commit and BuildTime are injected through -ldflags at release time.
// The version subcommand also reports the embedded WWDR intermediate, which pins
// how long a given build can produce passes Wallet accepts.
package version
