// Package buildinfo carries version metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/modoterra/wingetup/internal/buildinfo.Version=v1.0.0"
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
