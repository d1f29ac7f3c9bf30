package version

// Version is overridden at build time via
// -ldflags "-X github.com/orato-labs/speechcoach/internal/version.Version=...".
var Version = "dev"
