// Package config defines packaging settings used by the dubai CLI and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the identity bundle location, how its passphrase
// is obtained, where archives are written and how they are compressed.
// The WWDR intermediate is deliberately not configurable.
package config
