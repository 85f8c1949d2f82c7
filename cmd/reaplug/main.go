// Package main provides the reaplug CLI for installing REAPER plugins.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
)

const appVersion = "1.0.0"

func main() {
	ctx := context.Background()

	// No arguments installs every known plugin, the common first-run case.
	if len(os.Args) < 2 {
		runInstall(ctx, nil)
		return
	}

	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "install":
		runInstall(ctx, os.Args[2:])
	case "list":
		runList(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "update":
		runUpdate(ctx, os.Args[2:])
	case "uninstall":
		runUninstall(ctx, os.Args[2:])
	case "version", "--version":
		fmt.Printf("reaplug %s\n", appVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`reaplug - REAPER plugin installer for macOS

Usage:
  reaplug [command] [options] [plugin...]

Running reaplug with no arguments installs every known plugin.

Commands:
  install    Install one or more plugins (default: all)
  list       List available plugin recipes
  status     Show installed and latest versions
  update     Update installed plugins to their latest release
  uninstall  Remove an installed plugin
  version    Print the reaplug version

Use "reaplug <command> --help" for more information about a command.`)
}

// detectArch maps Go's GOARCH to the architecture names REAPER plugin
// releases use in their filenames.
func detectArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	case "386":
		return "i386"
	default:
		return runtime.GOARCH
	}
}
