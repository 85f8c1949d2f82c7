// Package yaml provides YAML-based recipe and receipt persistence.
package yaml

import (
	"fmt"
	"os"
	"strings"

	"github.com/reaplug/reaplug/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlRecipe represents the raw YAML structure
type yamlRecipe struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Version     yamlVersion  `yaml:"version"`
	Download    yamlDownload `yaml:"download"`
	Install     yamlInstall  `yaml:"install"`
	Security    yamlSecurity `yaml:"security"`
}

type yamlVersion struct {
	Source string `yaml:"source"`
}

type yamlDownload struct {
	URL         string   `yaml:"url"`
	Extensions  []string `yaml:"extensions"`
	Keywords    []string `yaml:"keywords"`
	RequireArch bool     `yaml:"require_arch"`
}

type yamlInstall struct {
	Kind        string `yaml:"kind"`
	Destination string `yaml:"destination"`
}

type yamlSecurity struct {
	SHA256           string   `yaml:"sha256"`
	ChecksumAsset    string   `yaml:"checksum_asset"`
	SignatureAsset   string   `yaml:"signature_asset"`
	GPGKeyIDs        []string `yaml:"gpg_key_ids"`
	GPGKeysURL       string   `yaml:"gpg_keys_url"`
	GPGKeyFile       string   `yaml:"gpg_key_file"`
	MinisignKey      string   `yaml:"minisign_key"`
	MinisignSigAsset string   `yaml:"minisign_sig_asset"`
}

// RecipeParser parses YAML recipe files
type RecipeParser struct{}

// NewRecipeParser creates a new YAML parser
func NewRecipeParser() *RecipeParser {
	return &RecipeParser{}
}

// ParseFile parses a YAML recipe file into a PluginRecipe entity
func (p *RecipeParser) ParseFile(filePath string) (*entities.PluginRecipe, error) {
	//nolint:gosec // G304: filePath is a recipe path from the repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return p.Parse(data)
}

// Parse parses YAML bytes into a PluginRecipe entity
func (p *RecipeParser) Parse(data []byte) (*entities.PluginRecipe, error) {
	var raw yamlRecipe
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	recipe := &entities.PluginRecipe{
		Name:        raw.Name,
		Description: raw.Description,
		Version:     entities.VersionConfig{Source: raw.Version.Source},
		Download: entities.DownloadConfig{
			URL:         raw.Download.URL,
			Extensions:  raw.Download.Extensions,
			Keywords:    raw.Download.Keywords,
			RequireArch: raw.Download.RequireArch,
		},
		Install: entities.InstallConfig{
			Kind:        raw.Install.Kind,
			Destination: raw.Install.Destination,
		},
		Security: entities.SecurityConfig{
			SHA256:           raw.Security.SHA256,
			ChecksumAsset:    raw.Security.ChecksumAsset,
			SignatureAsset:   raw.Security.SignatureAsset,
			GPGKeyIDs:        raw.Security.GPGKeyIDs,
			GPGKeysURL:       raw.Security.GPGKeysURL,
			GPGKeyFile:       raw.Security.GPGKeyFile,
			MinisignKey:      raw.Security.MinisignKey,
			MinisignSigAsset: raw.Security.MinisignSigAsset,
		},
	}

	if err := validateRecipe(recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

func validateRecipe(r *entities.PluginRecipe) error {
	if r.Name == "" {
		return fmt.Errorf("recipe must have a name")
	}
	if r.Version.Source == "" {
		return fmt.Errorf("recipe %s must have a version.source", r.Name)
	}

	switch {
	case r.GitHubRepo() != "":
		if !strings.Contains(r.GitHubRepo(), "/") {
			return fmt.Errorf("recipe %s: github-release source must be owner/repo", r.Name)
		}
	case r.StaticVersion() != "":
		if r.Download.URL == "" {
			return fmt.Errorf("recipe %s: static source requires download.url", r.Name)
		}
	default:
		return fmt.Errorf("recipe %s: unsupported version.source %q", r.Name, r.Version.Source)
	}

	switch r.Install.Kind {
	case "", "auto", entities.KindCopy, entities.KindPkg, entities.KindDmg, entities.KindZip:
	default:
		return fmt.Errorf("recipe %s: unknown install.kind %q", r.Name, r.Install.Kind)
	}

	return nil
}
