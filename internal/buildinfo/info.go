// Package buildinfo holds release metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/cleared-dev/bankcsv/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
