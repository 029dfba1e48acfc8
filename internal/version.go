package internal

var (
	Branch = "main"
	// Version is the release version, set at build time.
	Version    = "0.3.0"
	Prerelease = ""
	Metadata   = "dev"
	Commit     = ""
	Date       = ""
)

// FullVersion returns the version string reported by `originssl version`,
// including prerelease and metadata segments when set.
func FullVersion() string {
	v := Version

	if Prerelease != "" {
		v += "-" + Prerelease
	}

	if Metadata != "" {
		v += "+" + Metadata
	}

	return v
}
