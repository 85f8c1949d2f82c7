// Package orchestrators coordinates plugin workflows across gateways.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/reaplug/reaplug/internal/domain/entities"
	"github.com/reaplug/reaplug/internal/domain/interfaces/repositories"
	"github.com/reaplug/reaplug/internal/domain/services"
)

// ReleaseGateway resolves plugin releases from a hosting provider.
type ReleaseGateway interface {
	GetLatestRelease(ctx context.Context, owner, repo string) (*entities.Release, error)
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*entities.Release, error)
}

// AssetFetcher downloads a URL into destDir and returns the file path.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, url, destDir, filename string) (string, error)
}

// ArtifactVerifier checks a downloaded artifact against the recipe's
// security configuration.
type ArtifactVerifier interface {
	Verify(ctx context.Context, recipe *entities.PluginRecipe, release *entities.Release, artifactPath, workDir string) error
}

// PluginInstaller places artifacts into the plugin directory and
// removes them again on uninstall.
type PluginInstaller interface {
	Install(ctx context.Context, artifact *entities.Artifact, pluginsDir, destination string, overwrite bool) ([]string, error)
	RemoveFiles(files []string) ([]string, error)
}

// QuarantineClearer strips the macOS quarantine attribute.
type QuarantineClearer interface {
	Clear(ctx context.Context, path string) error
}

// BinaryInspector checks that a plugin binary matches the target CPU.
type BinaryInspector interface {
	CheckArch(path, arch string) error
}

// Prompter asks the user yes/no questions.
type Prompter interface {
	Confirm(question string) bool
}

// InstallOrchestrator coordinates the complete plugin install workflow:
// resolve version, pick an asset, download, verify, install, clear
// quarantine, and record a receipt.
type InstallOrchestrator struct {
	recipes    repositories.RecipeRepository
	receipts   repositories.ReceiptStore
	releases   ReleaseGateway
	fetcher    AssetFetcher
	verifier   ArtifactVerifier
	installer  PluginInstaller
	quarantine QuarantineClearer
	inspector  BinaryInspector
	prompter   Prompter
	config     InstallOrchestratorConfig
}

// InstallOrchestratorConfig holds configuration for the orchestrator.
type InstallOrchestratorConfig struct {
	PluginsDir string
	Arch       string
	DryRun     bool
	SkipVerify bool
}

// NewInstallOrchestrator creates a new install orchestrator.
func NewInstallOrchestrator(
	recipes repositories.RecipeRepository,
	receipts repositories.ReceiptStore,
	releases ReleaseGateway,
	fetcher AssetFetcher,
	verifier ArtifactVerifier,
	installer PluginInstaller,
	quarantine QuarantineClearer,
	inspector BinaryInspector,
	prompter Prompter,
	config InstallOrchestratorConfig,
) *InstallOrchestrator {
	return &InstallOrchestrator{
		recipes:    recipes,
		receipts:   receipts,
		releases:   releases,
		fetcher:    fetcher,
		verifier:   verifier,
		installer:  installer,
		quarantine: quarantine,
		inspector:  inspector,
		prompter:   prompter,
		config:     config,
	}
}

// Install outcomes.
const (
	StatusInstalled = "installed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusPlanned   = "planned" // dry run stopped before downloading
)

// InstallResult contains the result of an install operation.
type InstallResult struct {
	Plugin           string
	Version          string
	Status           string
	Reason           string // human-readable explanation for skips
	Files            []string
	DownloadDuration time.Duration
	TotalDuration    time.Duration
	Error            error
}

func (r *InstallResult) fail(err error) (*InstallResult, error) {
	r.Status = StatusFailed
	r.Error = err
	return r, err
}

func (r *InstallResult) skip(reason string) (*InstallResult, error) {
	r.Status = StatusSkipped
	r.Reason = reason
	return r, nil
}

// InstallPlugin executes the complete install workflow for a plugin.
// When force is set, an existing installation is replaced without
// asking.
func (o *InstallOrchestrator) InstallPlugin(ctx context.Context, name string, force bool) (*InstallResult, error) {
	return o.InstallPluginVersion(ctx, name, "", force)
}

// InstallPluginVersion installs a specific tagged version. An empty
// pin installs the latest release.
func (o *InstallOrchestrator) InstallPluginVersion(ctx context.Context, name, pin string, force bool) (*InstallResult, error) {
	startTime := time.Now()
	result := &InstallResult{Plugin: name}
	defer func() { result.TotalDuration = time.Since(startTime) }()

	// Step 1: Load plugin recipe
	recipe, err := o.recipes.GetRecipe(ctx, name)
	if err != nil {
		return result.fail(fmt.Errorf("failed to load recipe: %w", err))
	}

	// Step 2: Resolve version and release
	release, version, err := o.resolveVersion(ctx, recipe, pin)
	if err != nil {
		return result.fail(err)
	}
	result.Version = version

	// Step 3: Check for an existing installation
	overwrite := force
	receipt, err := o.receipts.Load(ctx, name)
	if err != nil {
		return result.fail(fmt.Errorf("failed to read install receipt: %w", err))
	}
	if receipt != nil && !force {
		question := fmt.Sprintf("%s %s is already installed, replace with %s?", name, receipt.Version, version)
		if !o.prompter.Confirm(question) {
			return result.skip("kept existing installation")
		}
		overwrite = true
	}

	// Step 4: Pick a download URL
	url, filename, err := o.resolveDownload(recipe, release, version)
	if err != nil {
		return result.fail(err)
	}

	if o.config.DryRun {
		fmt.Fprintf(os.Stderr, "Would install %s %s from %s\n", name, version, url)
		result.Status = StatusPlanned
		return result, nil
	}

	// Step 5: Download into a scratch directory
	workDir, err := os.MkdirTemp("", "reaplug-")
	if err != nil {
		return result.fail(fmt.Errorf("failed to create work directory: %w", err))
	}
	defer os.RemoveAll(workDir) //nolint:errcheck // best-effort cleanup

	downloadStart := time.Now()
	artifactPath, err := o.fetcher.FetchAsset(ctx, url, workDir, filename)
	if err != nil {
		return result.fail(fmt.Errorf("failed to download %s: %w", filename, err))
	}
	result.DownloadDuration = time.Since(downloadStart)

	// Step 6: Verify the artifact
	if o.config.SkipVerify {
		fmt.Fprintf(os.Stderr, "Warning: skipping verification of %s\n", filename)
	} else if err := o.verifier.Verify(ctx, recipe, release, artifactPath, workDir); err != nil {
		return result.fail(fmt.Errorf("verification failed: %w", err))
	}

	// Step 7: Build the artifact and sanity-check loose binaries
	kind := recipe.Install.Kind
	if kind == "" || kind == "auto" {
		kind = entities.KindForFile(filename)
	}
	artifact := &entities.Artifact{
		Plugin:  name,
		Version: version,
		Arch:    o.config.Arch,
		Path:    artifactPath,
		Kind:    kind,
	}
	if kind == entities.KindCopy {
		if err := o.inspector.CheckArch(artifactPath, o.config.Arch); err != nil {
			return result.fail(fmt.Errorf("architecture check failed: %w", err))
		}
	}

	// Step 8: Install
	files, err := o.installer.Install(ctx, artifact, o.config.PluginsDir, recipe.Install.Destination, overwrite)
	if err != nil {
		if errors.Is(err, entities.ErrDeclined) {
			return result.skip("declined by user")
		}
		return result.fail(fmt.Errorf("install failed: %w", err))
	}
	result.Files = files

	// Step 9: Clear quarantine. Package installs report no file list,
	// so sweep the whole plugin directory instead.
	if len(files) == 0 {
		if err := o.quarantine.Clear(ctx, o.config.PluginsDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	for _, f := range files {
		if err := o.quarantine.Clear(ctx, f); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	// Step 10: Record the receipt
	newReceipt := &entities.InstallReceipt{
		Plugin:      name,
		Version:     version,
		Arch:        o.config.Arch,
		Method:      kind,
		Files:       files,
		InstalledAt: time.Now().UTC(),
	}
	if err := o.receipts.Save(ctx, newReceipt); err != nil {
		return result.fail(fmt.Errorf("failed to save install receipt: %w", err))
	}

	result.Status = StatusInstalled
	return result, nil
}

// UpdatePlugin reinstalls a plugin when a newer release exists.
// Plugins that resolve versions from a static source are always
// refreshed, since the published file tracks the latest release.
func (o *InstallOrchestrator) UpdatePlugin(ctx context.Context, name string) (*InstallResult, error) {
	result := &InstallResult{Plugin: name}

	receipt, err := o.receipts.Load(ctx, name)
	if err != nil {
		return result.fail(fmt.Errorf("failed to read install receipt: %w", err))
	}
	if receipt == nil {
		return result.skip("not installed")
	}
	result.Version = receipt.Version

	recipe, err := o.recipes.GetRecipe(ctx, name)
	if err != nil {
		return result.fail(fmt.Errorf("failed to load recipe: %w", err))
	}

	if repo := recipe.GitHubRepo(); repo != "" {
		_, latest, err := o.resolveVersion(ctx, recipe, "")
		if err != nil {
			return result.fail(err)
		}
		if !services.IsNewer(latest, receipt.Version) {
			return result.skip(fmt.Sprintf("already up to date (%s)", receipt.Version))
		}
	}

	return o.InstallPlugin(ctx, name, true)
}

// UninstallPlugin removes a plugin's installed files and its receipt.
// It returns the paths it removed.
func (o *InstallOrchestrator) UninstallPlugin(ctx context.Context, name string) ([]string, error) {
	receipt, err := o.receipts.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read install receipt: %w", err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%s is not installed", name)
	}

	if !o.prompter.Confirm(fmt.Sprintf("Remove %s %s?", name, receipt.Version)) {
		return nil, entities.ErrDeclined
	}

	if len(receipt.Files) == 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s was installed via %s and left no file list, removing receipt only\n", name, receipt.Method)
	}

	if o.config.DryRun {
		fmt.Fprintf(os.Stderr, "Would remove %d file(s) for %s\n", len(receipt.Files), name)
		return nil, nil
	}

	removed, err := o.installer.RemoveFiles(receipt.Files)
	if err != nil {
		return removed, err
	}
	if err := o.receipts.Delete(ctx, name); err != nil {
		return removed, fmt.Errorf("failed to delete install receipt: %w", err)
	}
	return removed, nil
}

// PluginStatus describes one plugin's installed versus latest version.
type PluginStatus struct {
	Plugin          string
	Description     string
	Installed       string // empty when not installed
	Latest          string // empty when the source cannot report one
	UpdateAvailable bool
}

// Status reports the installed and latest versions of every known
// plugin. Release lookups that fail leave Latest empty rather than
// failing the whole report.
func (o *InstallOrchestrator) Status(ctx context.Context) ([]PluginStatus, error) {
	recipes, err := o.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	statuses := make([]PluginStatus, 0, len(recipes))
	for _, recipe := range recipes {
		status := PluginStatus{Plugin: recipe.Name, Description: recipe.Description}

		receipt, err := o.receipts.Load(ctx, recipe.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read install receipt for %s: %w", recipe.Name, err)
		}
		if receipt != nil {
			status.Installed = receipt.Version
		}

		if repo := recipe.GitHubRepo(); repo != "" {
			if _, latest, err := o.resolveVersion(ctx, recipe, ""); err == nil {
				status.Latest = latest
			} else {
				fmt.Fprintf(os.Stderr, "Warning: could not resolve latest version of %s: %v\n", recipe.Name, err)
			}
		}

		status.UpdateAvailable = status.Installed != "" && status.Latest != "" &&
			services.IsNewer(status.Latest, status.Installed)
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// resolveVersion determines the version to install. GitHub-backed
// recipes return the resolved release alongside its normalized tag;
// static recipes return only their version label. A non-empty pin
// selects that tag instead of the latest release.
func (o *InstallOrchestrator) resolveVersion(ctx context.Context, recipe *entities.PluginRecipe, pin string) (*entities.Release, string, error) {
	if repo := recipe.GitHubRepo(); repo != "" {
		owner, project, ok := splitRepo(repo)
		if !ok {
			return nil, "", fmt.Errorf("invalid repository %q in recipe %s", repo, recipe.Name)
		}
		var release *entities.Release
		var err error
		if pin != "" {
			release, err = o.releases.GetReleaseByTag(ctx, owner, project, pin)
			if err != nil {
				return nil, "", fmt.Errorf("failed to resolve release %s of %s: %w", pin, repo, err)
			}
		} else {
			release, err = o.releases.GetLatestRelease(ctx, owner, project)
			if err != nil {
				return nil, "", fmt.Errorf("failed to resolve latest release of %s: %w", repo, err)
			}
		}
		return release, services.NormalizeVersion(release.TagName), nil
	}

	if pin != "" {
		return nil, services.NormalizeVersion(pin), nil
	}
	if version := recipe.StaticVersion(); version != "" {
		return nil, version, nil
	}
	return nil, "", fmt.Errorf("recipe %s has no usable version source", recipe.Name)
}

// resolveDownload picks the asset to download: by scoring release
// assets for GitHub recipes, or by expanding the URL template for
// static ones.
func (o *InstallOrchestrator) resolveDownload(recipe *entities.PluginRecipe, release *entities.Release, version string) (url, filename string, err error) {
	if release != nil {
		asset, err := services.SelectAsset(release.Assets, recipe.Download, o.config.Arch)
		if err != nil {
			return "", "", fmt.Errorf("no suitable asset for %s: %w", recipe.Name, err)
		}
		return asset.BrowserDownloadURL, asset.Name, nil
	}

	if recipe.Download.URL == "" {
		return "", "", fmt.Errorf("recipe %s has no download URL", recipe.Name)
	}
	url = services.ExpandURLTemplate(recipe.Download.URL, version, o.config.Arch)
	return url, services.FilenameFromURL(url), nil
}

func splitRepo(repo string) (owner, project string, ok bool) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
