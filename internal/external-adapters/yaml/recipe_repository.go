package yaml

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reaplug/reaplug/internal/domain/entities"
	"github.com/reaplug/reaplug/internal/domain/interfaces/repositories"
)

var _ repositories.RecipeRepository = (*RecipeRepository)(nil)

// Built-in recipes ship with the binary so the tool works when invoked
// with no arguments and no files on disk.
//
//go:embed recipes/*.yml
var builtinRecipes embed.FS

// RecipeRepository implements repositories.RecipeRepository using YAML
// files. Recipes in recipesDir override built-in recipes of the same name.
type RecipeRepository struct {
	recipesDir string
	parser     *RecipeParser
}

// NewRecipeRepository creates a new YAML-based recipe repository.
// recipesDir may be empty, in which case only built-in recipes exist.
func NewRecipeRepository(recipesDir string) *RecipeRepository {
	return &RecipeRepository{
		recipesDir: recipesDir,
		parser:     NewRecipeParser(),
	}
}

// GetRecipe retrieves a plugin recipe by name
func (r *RecipeRepository) GetRecipe(_ context.Context, name string) (*entities.PluginRecipe, error) {
	if r.recipesDir != "" {
		filePath := filepath.Join(r.recipesDir, name+".yml")
		if _, err := os.Stat(filePath); err == nil {
			return r.parser.ParseFile(filePath)
		}
	}

	data, err := builtinRecipes.ReadFile("recipes/" + name + ".yml")
	if err != nil {
		return nil, fmt.Errorf("recipe not found: %s", name)
	}
	return r.parser.Parse(data)
}

// ListRecipes returns all available plugin recipes, built-in plus any
// from the recipes directory, sorted by name.
func (r *RecipeRepository) ListRecipes(ctx context.Context) ([]*entities.PluginRecipe, error) {
	names := make(map[string]struct{})

	entries, err := builtinRecipes.ReadDir("recipes")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in recipes: %w", err)
	}
	for _, entry := range entries {
		names[strings.TrimSuffix(entry.Name(), ".yml")] = struct{}{}
	}

	if r.recipesDir != "" {
		dirEntries, err := os.ReadDir(r.recipesDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read recipes directory: %w", err)
		}
		for _, entry := range dirEntries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
				continue
			}
			names[strings.TrimSuffix(entry.Name(), ".yml")] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	recipes := make([]*entities.PluginRecipe, 0, len(sorted))
	for _, name := range sorted {
		recipe, err := r.GetRecipe(ctx, name)
		if err != nil {
			// Log warning but continue processing other recipes
			fmt.Fprintf(os.Stderr, "Warning: failed to parse recipe %s: %v\n", name, err)
			continue
		}
		recipes = append(recipes, recipe)
	}

	return recipes, nil
}
