package gateways

import (
	"context"
	"fmt"
	"os"
)

// QuarantineGateway removes the com.apple.quarantine extended attribute
// so Gatekeeper does not block freshly downloaded plugin binaries when
// REAPER loads them.
type QuarantineGateway struct {
	runner commandRunner
}

// NewQuarantineGateway creates a gateway backed by the system xattr tool.
func NewQuarantineGateway() *QuarantineGateway {
	return &QuarantineGateway{runner: execRunner{}}
}

// Clear strips the quarantine attribute from path, recursing into
// directories. Failures are reported but not fatal: the attribute may
// simply be absent, and the plugin is already in place.
func (g *QuarantineGateway) Clear(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	args := []string{"-d", "com.apple.quarantine", path}
	if info.IsDir() {
		args = []string{"-dr", "com.apple.quarantine", path}
	}

	if _, err := g.runner.Run(ctx, "xattr", args...); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not clear quarantine on %s\n", path)
	}
	return nil
}
