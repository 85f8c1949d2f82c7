package entities

// Release is the subset of an upstream release consulted by the installer.
type Release struct {
	TagName string
	Assets  []ReleaseAsset
}

// ReleaseAsset represents a downloadable file attached to a release.
type ReleaseAsset struct {
	Name               string
	Size               int64
	BrowserDownloadURL string
}

// FindAsset returns the asset with the given name, or nil.
func (r *Release) FindAsset(name string) *ReleaseAsset {
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i]
		}
	}
	return nil
}
