package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// statusListing is the JSON shape of one status entry.
type statusListing struct {
	Name            string `json:"name"`
	Installed       string `json:"installed,omitempty"`
	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	flags := registerCommonFlags(fs)
	jsonOutput := fs.Bool("json", false, "Emit JSON instead of text")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reaplug status [options]

Show the installed and latest version of every known plugin.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	orch, _, _, err := buildOrchestrator(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	statuses, err := orch.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		listings := make([]statusListing, 0, len(statuses))
		for _, s := range statuses {
			listings = append(listings, statusListing{
				Name:            s.Plugin,
				Installed:       s.Installed,
				Latest:          s.Latest,
				UpdateAvailable: s.UpdateAvailable,
			})
		}
		data, err := json.MarshalIndent(listings, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("%-10s %-12s %-12s\n", "PLUGIN", "INSTALLED", "LATEST")
	for _, s := range statuses {
		installed := s.Installed
		if installed == "" {
			installed = "-"
		}
		latest := s.Latest
		if latest == "" {
			latest = "?"
		}
		line := fmt.Sprintf("%-10s %-12s %-12s", s.Plugin, installed, latest)
		if s.UpdateAvailable {
			line += " update available"
		}
		fmt.Println(line)
	}
}
