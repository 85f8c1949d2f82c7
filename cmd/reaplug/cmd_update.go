package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func runUpdate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	flags := registerCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reaplug update [options] [plugin...]

Update installed plugins to their latest release. With no plugin names,
every installed plugin is checked.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	orch, _, receiptStore, err := buildOrchestrator(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	names := fs.Args()
	if len(names) == 0 {
		receipts, err := receiptStore.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(receipts) == 0 {
			fmt.Println("No plugins installed")
			return
		}
		for _, r := range receipts {
			names = append(names, r.Plugin)
		}
	}

	failed := 0
	for _, name := range names {
		fmt.Printf("=== Updating %s ===\n", name)
		result, err := orch.UpdatePlugin(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n\n", name, err)
			failed++
			continue
		}
		printInstallResult(result)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d plugin(s) failed to update\n", failed, len(names))
		os.Exit(1)
	}
}
