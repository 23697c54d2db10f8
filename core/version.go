package core

import (
	_ "embed"
	"strings"
)

//go:embed version
var clientVersion string

// ClientVersion is the library version reported in the default User-Agent.
func ClientVersion() string {
	return strings.TrimSpace(clientVersion)
}
