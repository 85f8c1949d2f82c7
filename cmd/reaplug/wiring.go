package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reaplug/reaplug/internal/domain-adapters/gateways"
	orchestrators "github.com/reaplug/reaplug/internal/domain-orchestrators"
	"github.com/reaplug/reaplug/internal/domain/interfaces"
	"github.com/reaplug/reaplug/internal/external-adapters/gpg"
	"github.com/reaplug/reaplug/internal/external-adapters/minisign"
	"github.com/reaplug/reaplug/internal/external-adapters/yaml"
)

// appFlags holds the options shared by every subcommand.
type appFlags struct {
	pluginsDir string
	recipesDir string
	arch       string
	assumeYes  bool
	dryRun     bool
	skipVerify bool
	verbose    bool
}

func registerCommonFlags(fs *flag.FlagSet) *appFlags {
	flags := &appFlags{}
	fs.StringVar(&flags.pluginsDir, "plugins-dir", "", "REAPER plugin directory (default: ~/Library/Application Support/REAPER/UserPlugins)")
	fs.StringVar(&flags.recipesDir, "recipes-dir", "", "Directory of recipe overrides (default: built-in recipes only)")
	fs.StringVar(&flags.arch, "arch", "", "Target architecture: arm64, x86_64, or i386 (default: auto-detect)")
	fs.BoolVar(&flags.assumeYes, "yes", false, "Answer yes to every prompt")
	fs.BoolVar(&flags.dryRun, "dry-run", false, "Resolve versions and assets without installing")
	fs.BoolVar(&flags.skipVerify, "skip-verify", false, "Skip checksum and signature verification")
	fs.BoolVar(&flags.verbose, "verbose", false, "Enable debug output")
	return flags
}

// resolve fills in the defaults that need the environment.
func (f *appFlags) resolve() error {
	if f.pluginsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
		f.pluginsDir = filepath.Join(home, "Library", "Application Support", "REAPER", "UserPlugins")
	}
	if f.arch == "" {
		f.arch = detectArch()
	}
	return nil
}

// receiptsDir keeps install receipts next to the plugins they describe.
func (f *appFlags) receiptsDir() string {
	return filepath.Join(f.pluginsDir, ".reaplug")
}

func githubToken() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("GH_TOKEN")
}

// buildOrchestrator wires the full component graph for commands that
// install, update, or uninstall plugins.
func buildOrchestrator(flags *appFlags) (*orchestrators.InstallOrchestrator, *yaml.RecipeRepository, *yaml.ReceiptStore, error) {
	if err := flags.resolve(); err != nil {
		return nil, nil, nil, err
	}

	recipeRepo := yaml.NewRecipeRepository(flags.recipesDir)
	receiptStore := yaml.NewReceiptStore(flags.receiptsDir())

	logger := &interfaces.StderrLogger{Verbose: flags.verbose}
	downloader := gateways.NewDownloader()
	prompter := gateways.NewConsolePrompter(flags.assumeYes)
	verifier := gateways.NewArtifactVerifier(gpg.NewVerifier(), minisign.NewVerifier(), downloader, logger)

	orch := orchestrators.NewInstallOrchestrator(
		recipeRepo,
		receiptStore,
		gateways.NewHTTPReleaseGateway(githubToken()),
		downloader,
		verifier,
		gateways.NewPluginInstaller(prompter),
		gateways.NewQuarantineGateway(),
		gateways.NewMachOInspector(),
		prompter,
		orchestrators.InstallOrchestratorConfig{
			PluginsDir: flags.pluginsDir,
			Arch:       flags.arch,
			DryRun:     flags.dryRun,
			SkipVerify: flags.skipVerify,
		},
	)
	return orch, recipeRepo, receiptStore, nil
}
