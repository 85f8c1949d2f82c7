package repositories

import (
	"context"

	"github.com/reaplug/reaplug/internal/domain/entities"
)

// ReceiptStore defines the interface for persisting install receipts
type ReceiptStore interface {
	// Load retrieves the receipt for a plugin, or (nil, nil) when the
	// plugin has never been installed
	Load(ctx context.Context, plugin string) (*entities.InstallReceipt, error)

	// Save persists the receipt for a plugin, replacing any previous one
	Save(ctx context.Context, receipt *entities.InstallReceipt) error

	// Delete removes the receipt for a plugin
	Delete(ctx context.Context, plugin string) error

	// List returns receipts for every installed plugin
	List(ctx context.Context) ([]*entities.InstallReceipt, error)
}
