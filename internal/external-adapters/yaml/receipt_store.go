package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reaplug/reaplug/internal/domain/entities"
	"github.com/reaplug/reaplug/internal/domain/interfaces/repositories"
	"gopkg.in/yaml.v3"
)

var _ repositories.ReceiptStore = (*ReceiptStore)(nil)

// yamlReceipt represents the on-disk receipt structure
type yamlReceipt struct {
	Plugin      string    `yaml:"plugin"`
	Version     string    `yaml:"version"`
	Arch        string    `yaml:"arch"`
	Method      string    `yaml:"method"`
	Files       []string  `yaml:"files"`
	InstalledAt time.Time `yaml:"installed_at"`
}

// ReceiptStore implements repositories.ReceiptStore with one YAML file
// per plugin under a receipts directory.
type ReceiptStore struct {
	dir string
}

// NewReceiptStore creates a receipt store rooted at dir.
// The directory is created lazily on first Save.
func NewReceiptStore(dir string) *ReceiptStore {
	return &ReceiptStore{dir: dir}
}

func (s *ReceiptStore) receiptPath(plugin string) string {
	return filepath.Join(s.dir, plugin+".yml")
}

// Load retrieves the receipt for a plugin, or (nil, nil) when the plugin
// has never been installed
func (s *ReceiptStore) Load(_ context.Context, plugin string) (*entities.InstallReceipt, error) {
	//nolint:gosec // G304: receipt path is derived from the plugin name
	data, err := os.ReadFile(s.receiptPath(plugin))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read receipt for %s: %w", plugin, err)
	}

	var raw yamlReceipt
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse receipt for %s: %w", plugin, err)
	}

	return &entities.InstallReceipt{
		Plugin:      raw.Plugin,
		Version:     raw.Version,
		Arch:        raw.Arch,
		Method:      raw.Method,
		Files:       raw.Files,
		InstalledAt: raw.InstalledAt,
	}, nil
}

// Save persists the receipt for a plugin, replacing any previous one
func (s *ReceiptStore) Save(_ context.Context, receipt *entities.InstallReceipt) error {
	if receipt.Plugin == "" {
		return fmt.Errorf("receipt must name a plugin")
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create receipts directory: %w", err)
	}

	raw := yamlReceipt{
		Plugin:      receipt.Plugin,
		Version:     receipt.Version,
		Arch:        receipt.Arch,
		Method:      receipt.Method,
		Files:       receipt.Files,
		InstalledAt: receipt.InstalledAt,
	}

	data, err := yaml.Marshal(&raw)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	if err := os.WriteFile(s.receiptPath(receipt.Plugin), data, 0644); err != nil { //nolint:gosec // G306: receipts are not sensitive
		return fmt.Errorf("failed to write receipt for %s: %w", receipt.Plugin, err)
	}
	return nil
}

// Delete removes the receipt for a plugin
func (s *ReceiptStore) Delete(_ context.Context, plugin string) error {
	if err := os.Remove(s.receiptPath(plugin)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete receipt for %s: %w", plugin, err)
	}
	return nil
}

// List returns receipts for every installed plugin, sorted by plugin name
func (s *ReceiptStore) List(ctx context.Context) ([]*entities.InstallReceipt, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read receipts directory: %w", err)
	}

	var receipts []*entities.InstallReceipt
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}
		receipt, err := s.Load(ctx, strings.TrimSuffix(entry.Name(), ".yml"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping unreadable receipt %s: %v\n", entry.Name(), err)
			continue
		}
		if receipt != nil {
			receipts = append(receipts, receipt)
		}
	}

	sort.Slice(receipts, func(i, j int) bool { return receipts[i].Plugin < receipts[j].Plugin })
	return receipts, nil
}
