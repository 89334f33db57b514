// Package version reports build information. The variables are set at link
// time:
//
//	go build -ldflags "-X github.com/rickgao/nakama-client/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/nakama-client/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/nakama-client/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

// Product is the client name reported to the server.
const Product = "nakama-client"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the version line printed by --version.
func String() string {
	return Product + " " + Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent returns the User-Agent sent with REST requests.
func UserAgent() string {
	return Product + "/" + Version
}
