package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	orchestrators "github.com/reaplug/reaplug/internal/domain-orchestrators"
)

// installListing is the JSON shape of one install outcome.
type installListing struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Status  string   `json:"status"`
	Reason  string   `json:"reason,omitempty"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func runInstall(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	flags := registerCommonFlags(fs)
	force := fs.Bool("force", false, "Reinstall even when already installed")
	pin := fs.String("version", "", "Install a specific release tag instead of the latest")
	jsonOutput := fs.Bool("json", false, "Emit JSON instead of text")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reaplug install [options] [plugin...]

Install REAPER plugins. With no plugin names, every known plugin is
installed.

Examples:
  reaplug install                       # Install all plugins
  reaplug install sws                   # Install only the SWS extension
  reaplug install --yes reapack         # Install ReaPack without prompts
  reaplug install --version v2.13.1 sws # Pin a specific release

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	orch, recipeRepo, _, err := buildOrchestrator(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	names := fs.Args()
	if *pin != "" && len(names) != 1 {
		fmt.Fprintln(os.Stderr, "Error: --version requires exactly one plugin name")
		os.Exit(1)
	}
	if len(names) == 0 {
		recipes, err := recipeRepo.ListRecipes(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, r := range recipes {
			names = append(names, r.Name)
		}
	}

	failed := 0
	listings := make([]installListing, 0, len(names))
	for _, name := range names {
		if !*jsonOutput {
			fmt.Printf("=== Installing %s ===\n", name)
		}
		result, err := orch.InstallPluginVersion(ctx, name, *pin, *force)
		if err != nil {
			failed++
			if *jsonOutput {
				listings = append(listings, installListing{Name: name, Status: orchestrators.StatusFailed, Error: err.Error()})
			} else {
				fmt.Fprintf(os.Stderr, "❌ %s: %v\n\n", name, err)
			}
			continue
		}
		if *jsonOutput {
			listings = append(listings, installListing{
				Name:    result.Plugin,
				Version: result.Version,
				Status:  result.Status,
				Reason:  result.Reason,
				Files:   result.Files,
			})
		} else {
			printInstallResult(result)
		}
	}

	if *jsonOutput {
		data, err := json.MarshalIndent(listings, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d plugin(s) failed to install\n", failed, len(names))
		os.Exit(1)
	}
}

func printInstallResult(result *orchestrators.InstallResult) {
	switch result.Status {
	case orchestrators.StatusInstalled:
		fmt.Printf("✅ %s %s installed", result.Plugin, result.Version)
		if len(result.Files) > 0 {
			fmt.Printf(" (%d file(s))", len(result.Files))
		}
		fmt.Printf(" in %v\n\n", result.TotalDuration.Round(time.Millisecond))
	case orchestrators.StatusSkipped:
		fmt.Printf("⏭️  %s skipped: %s\n\n", result.Plugin, result.Reason)
	case orchestrators.StatusPlanned:
		fmt.Printf("Dry run: %s %s not installed\n\n", result.Plugin, result.Version)
	}
}
