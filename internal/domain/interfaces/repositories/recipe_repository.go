// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/reaplug/reaplug/internal/domain/entities"
)

// RecipeRepository defines the interface for accessing plugin recipes
type RecipeRepository interface {
	// GetRecipe retrieves a plugin recipe by name
	GetRecipe(ctx context.Context, name string) (*entities.PluginRecipe, error)

	// ListRecipes returns all available plugin recipes
	ListRecipes(ctx context.Context) ([]*entities.PluginRecipe, error)
}
