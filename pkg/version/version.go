// Package version exposes build-time version metadata.
package version

// FilterdeskVersion is the semantic version string embedded at build time.
var FilterdeskVersion = "0.0.0-src"

// Set version at compile time with
// go build -ldflags "-X filterdesk/pkg/version.FilterdeskVersion=1.0.0" -o filterdesk

// For a release build with version and optimization flags:
// go build -ldflags "-s -w -X filterdesk/pkg/version.FilterdeskVersion=1.0.0" -o filterdesk
