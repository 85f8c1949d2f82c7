// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/reaplug/reaplug/internal/domain/entities"
)

// ReleaseGateway defines the read-only release API surface the installer
// needs: resolving the latest release and looking up a pinned tag.
type ReleaseGateway interface {
	// GetLatestRelease retrieves the latest published release
	GetLatestRelease(ctx context.Context, owner, repo string) (*entities.Release, error)

	// GetReleaseByTag retrieves a release by tag name
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*entities.Release, error)
}
