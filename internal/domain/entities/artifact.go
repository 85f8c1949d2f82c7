// Package entities defines core domain models and data structures.
package entities

import (
	"errors"
	"strings"
)

// ErrDeclined reports that the user answered no to an install prompt.
// Callers treat it as a skip rather than a failure.
var ErrDeclined = errors.New("declined by user")

// ErrUnsupportedPlatform reports that plugins can only be installed on
// macOS.
var ErrUnsupportedPlatform = errors.New("plugin installation requires macOS")

// Artifact kinds, matching the install dispatch.
const (
	KindCopy = "copy" // plain plugin binary, copied into the plugin directory
	KindPkg  = "pkg"  // macOS installer package, run with privileges
	KindDmg  = "dmg"  // disk image, mounted and searched for a payload
	KindZip  = "zip"  // zip archive, extracted and searched for a payload
)

// Artifact is a plugin payload downloaded to the local filesystem.
type Artifact struct {
	Plugin  string
	Version string
	Arch    string
	Path    string
	Kind    string
}

// KindForFile maps a filename extension to an artifact kind. Unknown
// extensions fall back to a plain copy (.dylib and anything
// unrecognized is copied as-is).
func KindForFile(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pkg"):
		return KindPkg
	case strings.HasSuffix(lower, ".dmg"):
		return KindDmg
	case strings.HasSuffix(lower, ".zip"):
		return KindZip
	default:
		return KindCopy
	}
}
