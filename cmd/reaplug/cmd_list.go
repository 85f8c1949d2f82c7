package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/reaplug/reaplug/internal/external-adapters/yaml"
)

// recipeListing is the JSON shape of one list entry.
type recipeListing struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
}

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	recipesDir := fs.String("recipes-dir", "", "Directory of recipe overrides (default: built-in recipes only)")
	jsonOutput := fs.Bool("json", false, "Emit JSON instead of text")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reaplug list [options]

List the plugins reaplug knows how to install.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	recipeRepo := yaml.NewRecipeRepository(*recipesDir)
	recipes, err := recipeRepo.ListRecipes(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		listings := make([]recipeListing, 0, len(recipes))
		for _, r := range recipes {
			listings = append(listings, recipeListing{
				Name:        r.Name,
				Description: r.Description,
				Source:      r.Version.Source,
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

	fmt.Printf("Available plugins (%d):\n\n", len(recipes))
	for _, r := range recipes {
		fmt.Printf("  %-10s %s\n", r.Name, r.Description)
		fmt.Printf("  %-10s source: %s\n\n", "", r.Version.Source)
	}
}
