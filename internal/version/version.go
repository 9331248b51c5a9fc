// Package version holds build metadata injected at link time.
package version

// Version is overridden by -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"
