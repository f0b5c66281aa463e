package buildinfo

// Set with -ldflags at build time, e.g.
//
//	-X 'github.com/m3rciful/leadbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/leadbot/core/buildinfo.Commit=1f2e3d4'
//	-X 'github.com/m3rciful/leadbot/core/buildinfo.Date=2026-10-01T09:00:00Z'
var (
	// Version is the release tag of the binary.
	Version = "dev"
	// Commit is the VCS revision the binary was built from.
	Commit = "local"
	// Date is the RFC3339 build time; empty for local builds.
	Date = ""
)
