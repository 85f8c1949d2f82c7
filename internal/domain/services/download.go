package services

import (
	"path"
	"strings"
)

// ExpandURLTemplate substitutes {version} and {arch} placeholders in a
// static download URL template.
func ExpandURLTemplate(template, version, arch string) string {
	url := strings.ReplaceAll(template, "{version}", version)
	return strings.ReplaceAll(url, "{arch}", arch)
}

// FilenameFromURL returns the last path segment of a download URL, the
// name the artifact is saved under.
func FilenameFromURL(url string) string {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return path.Base(trimmed)
}
