package gateways

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const maxCommandOutput = 2048

// commandRunner abstracts external command execution so install steps
// can be exercised in tests without hdiutil, installer, or xattr.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner runs commands through os/exec with combined output capture.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	//nolint:gosec // G204: command names are fixed system tools, arguments are controlled paths
	cmd := exec.CommandContext(ctx, name, args...)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	// sudo needs the terminal to ask for a password
	cmd.Stdin = os.Stdin

	err := cmd.Run()
	out := strings.TrimSpace(combined.String())
	if err != nil {
		msg := out
		if msg == "" {
			msg = err.Error()
		}
		if len(msg) > maxCommandOutput {
			msg = msg[:maxCommandOutput] + "..."
		}
		return out, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), msg)
	}
	return out, nil
}
