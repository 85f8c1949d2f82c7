package entities

// PluginRecipe describes how a single REAPER plugin is resolved,
// downloaded, verified, and installed.
type PluginRecipe struct {
	Name        string
	Description string
	Version     VersionConfig
	Download    DownloadConfig
	Install     InstallConfig
	Security    SecurityConfig
}

// VersionConfig represents version resolution configuration
type VersionConfig struct {
	Source string // e.g., "github-release:owner/repo", "static:latest"
}

// DownloadConfig represents download and asset selection configuration
type DownloadConfig struct {
	URL         string   // static download URL template ({version}, {arch})
	Extensions  []string // acceptable asset extensions, highest priority first
	Keywords    []string // asset name keywords, scored when present
	RequireArch bool     // asset name must carry an architecture token
}

// InstallConfig represents installation configuration
type InstallConfig struct {
	Kind        string // "auto", "copy", "pkg", "dmg", "zip"
	Destination string // destination filename override (default: asset name)
}

// SecurityConfig represents verification configuration
type SecurityConfig struct {
	SHA256           string   // pinned hex digest for static downloads
	ChecksumAsset    string   // release asset holding SHA256SUMS-style digests
	SignatureAsset   string   // release asset holding a detached GPG signature
	GPGKeyIDs        []string // key fingerprints fetched from keyservers
	GPGKeysURL       string   // URL of an armored KEYS file
	GPGKeyFile       string   // path to a local armored or binary key file
	MinisignKey      string   // base64 minisign public key
	MinisignSigAsset string   // release asset holding a minisign signature
}

// GitHubRepo returns the owner/repo portion of a github-release version
// source, or empty string when the recipe uses another source kind.
func (r *PluginRecipe) GitHubRepo() string {
	const prefix = "github-release:"
	if len(r.Version.Source) > len(prefix) && r.Version.Source[:len(prefix)] == prefix {
		return r.Version.Source[len(prefix):]
	}
	return ""
}

// StaticVersion returns the version label of a static version source,
// or empty string when the recipe resolves versions from a release API.
func (r *PluginRecipe) StaticVersion() string {
	const prefix = "static:"
	if len(r.Version.Source) > len(prefix) && r.Version.Source[:len(prefix)] == prefix {
		return r.Version.Source[len(prefix):]
	}
	return ""
}
