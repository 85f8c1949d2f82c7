package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/reaplug/reaplug/internal/domain/entities"
)

func runUninstall(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("uninstall", flag.ExitOnError)
	flags := registerCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reaplug uninstall [options] <plugin>...

Remove installed plugins and their install receipts.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: plugin name is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	orch, _, _, err := buildOrchestrator(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, name := range fs.Args() {
		removed, err := orch.UninstallPlugin(ctx, name)
		if err != nil {
			if errors.Is(err, entities.ErrDeclined) {
				fmt.Printf("⏭️  %s kept\n", name)
				continue
			}
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("✅ %s removed (%d file(s))\n", name, len(removed))
	}

	if failed > 0 {
		os.Exit(1)
	}
}
