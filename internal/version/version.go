// ABOUTME: Version information for esprx
// ABOUTME: Reported by the version command, the status API and mDNS
package version

// Version is overridden at build time with -ldflags "-X github.com/harperreed/esprx/internal/version.Version=..."
var Version = "0.1.0"

const (
	Product      = "esprx"
	Manufacturer = "harperreed"
)

// String returns the product and version
func String() string {
	return Product + " " + Version
}
