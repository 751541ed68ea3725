package buildinfo

import "fmt"

// Set with -ldflags "-X github.com/1ikeadragon/subconverge/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("subconverge %s (commit=%s, date=%s)", Version, Commit, Date)
}
