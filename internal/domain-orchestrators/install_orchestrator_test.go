package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/reaplug/reaplug/internal/domain/entities"
)

type memRecipes struct {
	recipes map[string]*entities.PluginRecipe
}

func (m *memRecipes) GetRecipe(_ context.Context, name string) (*entities.PluginRecipe, error) {
	r, ok := m.recipes[name]
	if !ok {
		return nil, fmt.Errorf("recipe not found: %s", name)
	}
	return r, nil
}

func (m *memRecipes) ListRecipes(_ context.Context) ([]*entities.PluginRecipe, error) {
	names := make([]string, 0, len(m.recipes))
	for name := range m.recipes {
		names = append(names, name)
	}
	sort.Strings(names)

	recipes := make([]*entities.PluginRecipe, 0, len(names))
	for _, name := range names {
		recipes = append(recipes, m.recipes[name])
	}
	return recipes, nil
}

type memReceipts struct {
	receipts map[string]*entities.InstallReceipt
}

func newMemReceipts() *memReceipts {
	return &memReceipts{receipts: map[string]*entities.InstallReceipt{}}
}

func (m *memReceipts) Load(_ context.Context, plugin string) (*entities.InstallReceipt, error) {
	return m.receipts[plugin], nil
}

func (m *memReceipts) Save(_ context.Context, receipt *entities.InstallReceipt) error {
	m.receipts[receipt.Plugin] = receipt
	return nil
}

func (m *memReceipts) Delete(_ context.Context, plugin string) error {
	delete(m.receipts, plugin)
	return nil
}

func (m *memReceipts) List(_ context.Context) ([]*entities.InstallReceipt, error) {
	var out []*entities.InstallReceipt
	for _, r := range m.receipts {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plugin < out[j].Plugin })
	return out, nil
}

type stubReleases struct {
	release  *entities.Release
	tagged   map[string]*entities.Release
	err      error
	calls    int
	tagCalls []string
}

func (s *stubReleases) GetLatestRelease(_ context.Context, _, _ string) (*entities.Release, error) {
	s.calls++
	return s.release, s.err
}

func (s *stubReleases) GetReleaseByTag(_ context.Context, _, _, tag string) (*entities.Release, error) {
	s.tagCalls = append(s.tagCalls, tag)
	if s.err != nil {
		return nil, s.err
	}
	if release, ok := s.tagged[tag]; ok {
		return release, nil
	}
	return nil, fmt.Errorf("release not found: %s", tag)
}

type stubFetcher struct {
	urls []string
}

func (s *stubFetcher) FetchAsset(_ context.Context, url, destDir, filename string) (string, error) {
	s.urls = append(s.urls, url)
	path := filepath.Join(destDir, filename)
	return path, os.WriteFile(path, []byte("binary"), 0600)
}

type stubVerifier struct {
	calls int
	err   error
}

func (s *stubVerifier) Verify(_ context.Context, _ *entities.PluginRecipe, _ *entities.Release, _, _ string) error {
	s.calls++
	return s.err
}

type stubInstaller struct {
	files         []string
	err           error
	calls         int
	lastOverwrite bool
	removed       []string
}

func (s *stubInstaller) Install(_ context.Context, _ *entities.Artifact, _, _ string, overwrite bool) ([]string, error) {
	s.calls++
	s.lastOverwrite = overwrite
	return s.files, s.err
}

func (s *stubInstaller) RemoveFiles(files []string) ([]string, error) {
	s.removed = append(s.removed, files...)
	return files, nil
}

type stubQuarantine struct {
	cleared []string
}

func (s *stubQuarantine) Clear(_ context.Context, path string) error {
	s.cleared = append(s.cleared, path)
	return nil
}

type stubInspector struct {
	err error
}

func (s *stubInspector) CheckArch(_, _ string) error { return s.err }

type stubPrompter struct {
	answer    bool
	questions []string
}

func (s *stubPrompter) Confirm(question string) bool {
	s.questions = append(s.questions, question)
	return s.answer
}

// testHarness bundles the orchestrator with its fakes.
type testHarness struct {
	orch       *InstallOrchestrator
	recipes    *memRecipes
	receipts   *memReceipts
	releases   *stubReleases
	fetcher    *stubFetcher
	verifier   *stubVerifier
	installer  *stubInstaller
	quarantine *stubQuarantine
	inspector  *stubInspector
	prompter   *stubPrompter
}

func newHarness(t *testing.T, recipes map[string]*entities.PluginRecipe) *testHarness {
	t.Helper()
	h := &testHarness{
		recipes:    &memRecipes{recipes: recipes},
		receipts:   newMemReceipts(),
		releases:   &stubReleases{},
		fetcher:    &stubFetcher{},
		verifier:   &stubVerifier{},
		installer:  &stubInstaller{files: []string{"/plugins/reaper_sws.dylib"}},
		quarantine: &stubQuarantine{},
		inspector:  &stubInspector{},
		prompter:   &stubPrompter{},
	}
	h.orch = NewInstallOrchestrator(
		h.recipes, h.receipts, h.releases, h.fetcher, h.verifier,
		h.installer, h.quarantine, h.inspector, h.prompter,
		InstallOrchestratorConfig{PluginsDir: "/plugins", Arch: "arm64"},
	)
	return h
}

func swsRecipe() *entities.PluginRecipe {
	return &entities.PluginRecipe{
		Name:    "sws",
		Version: entities.VersionConfig{Source: "github-release:reaper-oss/sws"},
		Download: entities.DownloadConfig{
			Extensions: []string{".dylib", ".dmg"},
			Keywords:   []string{"sws"},
		},
	}
}

func reapackRecipe() *entities.PluginRecipe {
	return &entities.PluginRecipe{
		Name:    "reapack",
		Version: entities.VersionConfig{Source: "static:latest"},
		Download: entities.DownloadConfig{
			URL: "https://example.com/reaper_reapack-{arch}.dylib",
		},
		Install: entities.InstallConfig{Kind: entities.KindCopy},
	}
}

func swsRelease() *entities.Release {
	return &entities.Release{
		TagName: "v2.14.0.3",
		Assets: []entities.ReleaseAsset{
			{Name: "sws-v2.14.0.3-Darwin-arm64.dylib", BrowserDownloadURL: "https://example.com/sws-arm64.dylib"},
		},
	}
}

// Test the full install workflow for a GitHub-backed recipe
func TestInstallPlugin_GitHubRelease(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()

	result, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}

	if result.Status != StatusInstalled {
		t.Errorf("Status = %s, want installed", result.Status)
	}
	if result.Version != "2.14.0.3" {
		t.Errorf("Version = %s, want 2.14.0.3", result.Version)
	}
	if h.verifier.calls != 1 {
		t.Errorf("Verifier calls = %d, want 1", h.verifier.calls)
	}
	if h.installer.calls != 1 {
		t.Errorf("Installer calls = %d, want 1", h.installer.calls)
	}
	if len(h.quarantine.cleared) != 1 || h.quarantine.cleared[0] != "/plugins/reaper_sws.dylib" {
		t.Errorf("Quarantine cleared = %v", h.quarantine.cleared)
	}

	receipt := h.receipts.receipts["sws"]
	if receipt == nil {
		t.Fatal("No receipt saved")
	}
	if receipt.Version != "2.14.0.3" || receipt.Arch != "arm64" {
		t.Errorf("Receipt = %+v", receipt)
	}
	if time.Since(receipt.InstalledAt) > time.Minute {
		t.Errorf("InstalledAt = %v, want recent", receipt.InstalledAt)
	}
}

// Test that a pinned tag resolves through the tag lookup, not latest
func TestInstallPluginVersion_PinnedTag(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.tagged = map[string]*entities.Release{
		"v2.13.1": {
			TagName: "v2.13.1",
			Assets: []entities.ReleaseAsset{
				{Name: "sws-v2.13.1-Darwin-arm64.dylib", BrowserDownloadURL: "https://example.com/sws-2.13.1-arm64.dylib"},
			},
		},
	}

	result, err := h.orch.InstallPluginVersion(context.Background(), "sws", "v2.13.1", false)
	if err != nil {
		t.Fatalf("InstallPluginVersion failed: %v", err)
	}

	if result.Version != "2.13.1" {
		t.Errorf("Version = %s, want 2.13.1", result.Version)
	}
	if h.releases.calls != 0 {
		t.Errorf("Latest release calls = %d, want 0", h.releases.calls)
	}
	if len(h.releases.tagCalls) != 1 || h.releases.tagCalls[0] != "v2.13.1" {
		t.Errorf("Tag lookups = %v, want [v2.13.1]", h.releases.tagCalls)
	}
	if receipt := h.receipts.receipts["sws"]; receipt == nil || receipt.Version != "2.13.1" {
		t.Errorf("Receipt = %+v, want version 2.13.1", receipt)
	}
}

// Test that pinning an unknown tag fails the install
func TestInstallPluginVersion_UnknownTag(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})

	result, err := h.orch.InstallPluginVersion(context.Background(), "sws", "v0.0.0", false)
	if err == nil {
		t.Fatal("Expected error for unknown tag, got nil")
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %s, want failed", result.Status)
	}
}

// Test that a pin on a static recipe overrides the version label in
// the URL template
func TestInstallPluginVersion_StaticPin(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"reapack": reapackRecipe()})

	result, err := h.orch.InstallPluginVersion(context.Background(), "reapack", "v1.2.5", false)
	if err != nil {
		t.Fatalf("InstallPluginVersion failed: %v", err)
	}
	if result.Version != "1.2.5" {
		t.Errorf("Version = %s, want 1.2.5", result.Version)
	}
}

// Test a static-URL recipe expands its template and skips release lookup
func TestInstallPlugin_StaticURL(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"reapack": reapackRecipe()})

	result, err := h.orch.InstallPlugin(context.Background(), "reapack", false)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}

	if result.Version != "latest" {
		t.Errorf("Version = %s, want latest", result.Version)
	}
	if h.releases.calls != 0 {
		t.Errorf("Release gateway called %d times for a static recipe", h.releases.calls)
	}
	if len(h.fetcher.urls) != 1 || h.fetcher.urls[0] != "https://example.com/reaper_reapack-arm64.dylib" {
		t.Errorf("Fetched URLs = %v", h.fetcher.urls)
	}
}

// Reinstalls prompt, and declining keeps the existing install
func TestInstallPlugin_DeclineReinstall(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.receipts.receipts["sws"] = &entities.InstallReceipt{Plugin: "sws", Version: "2.14.0.3"}

	result, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}

	if result.Status != StatusSkipped {
		t.Errorf("Status = %s, want skipped", result.Status)
	}
	if h.installer.calls != 0 {
		t.Errorf("Installer ran despite decline")
	}
	if len(h.prompter.questions) != 1 {
		t.Errorf("Prompts = %v, want one reinstall question", h.prompter.questions)
	}
}

// Force replaces without prompting and passes overwrite down
func TestInstallPlugin_Force(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.receipts.receipts["sws"] = &entities.InstallReceipt{Plugin: "sws", Version: "2.13.0.0"}

	result, err := h.orch.InstallPlugin(context.Background(), "sws", true)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}

	if result.Status != StatusInstalled {
		t.Errorf("Status = %s, want installed", result.Status)
	}
	if len(h.prompter.questions) != 0 {
		t.Errorf("Unexpected prompts: %v", h.prompter.questions)
	}
	if !h.installer.lastOverwrite {
		t.Error("Installer should receive overwrite = true")
	}
}

// Dry run stops before downloading
func TestInstallPlugin_DryRun(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.orch.config.DryRun = true

	result, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}

	if result.Status != StatusPlanned {
		t.Errorf("Status = %s, want planned", result.Status)
	}
	if len(h.fetcher.urls) != 0 {
		t.Errorf("Dry run downloaded: %v", h.fetcher.urls)
	}
	if h.receipts.receipts["sws"] != nil {
		t.Error("Dry run saved a receipt")
	}
}

// Skip-verify bypasses the verifier
func TestInstallPlugin_SkipVerify(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.verifier.err = errors.New("would fail")
	h.orch.config.SkipVerify = true

	result, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}
	if result.Status != StatusInstalled {
		t.Errorf("Status = %s, want installed", result.Status)
	}
	if h.verifier.calls != 0 {
		t.Errorf("Verifier called %d times with skip-verify", h.verifier.calls)
	}
}

// Verification failures abort before installing
func TestInstallPlugin_VerificationFailure(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.verifier.err = errors.New("checksum mismatch")

	result, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err == nil {
		t.Fatal("Expected verification error, got nil")
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %s, want failed", result.Status)
	}
	if h.installer.calls != 0 {
		t.Error("Installer ran despite verification failure")
	}
}

// Wrong-architecture binaries abort before installing
func TestInstallPlugin_ArchMismatch(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.inspector.err = errors.New("built for x86_64, not arm64")

	_, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err == nil || !strings.Contains(err.Error(), "architecture check failed") {
		t.Fatalf("Error = %v, want architecture check failure", err)
	}
	if h.installer.calls != 0 {
		t.Error("Installer ran despite architecture mismatch")
	}
}

// Declining a prompt inside the installer counts as a skip
func TestInstallPlugin_InstallerDeclined(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.installer.err = entities.ErrDeclined
	h.installer.files = nil

	result, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Errorf("Status = %s, want skipped", result.Status)
	}
}

// Package installs report no files, so the plugin directory is swept
func TestInstallPlugin_PkgSweepsPluginsDir(t *testing.T) {
	recipe := swsRecipe()
	recipe.Install.Kind = entities.KindPkg
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": recipe})
	h.releases.release = swsRelease()
	h.installer.files = nil

	result, err := h.orch.InstallPlugin(context.Background(), "sws", false)
	if err != nil {
		t.Fatalf("InstallPlugin failed: %v", err)
	}
	if result.Status != StatusInstalled {
		t.Errorf("Status = %s, want installed", result.Status)
	}
	if len(h.quarantine.cleared) != 1 || h.quarantine.cleared[0] != "/plugins" {
		t.Errorf("Quarantine cleared = %v, want the plugins dir", h.quarantine.cleared)
	}
	if receipt := h.receipts.receipts["sws"]; receipt == nil || receipt.Method != entities.KindPkg {
		t.Errorf("Receipt = %+v, want pkg method", receipt)
	}
}

// Test update skips plugins that are not installed
func TestUpdatePlugin_NotInstalled(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})

	result, err := h.orch.UpdatePlugin(context.Background(), "sws")
	if err != nil {
		t.Fatalf("UpdatePlugin failed: %v", err)
	}
	if result.Status != StatusSkipped || result.Reason != "not installed" {
		t.Errorf("Result = %+v, want skipped/not installed", result)
	}
}

// Test update skips when already current
func TestUpdatePlugin_UpToDate(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.receipts.receipts["sws"] = &entities.InstallReceipt{Plugin: "sws", Version: "2.14.0.3"}

	result, err := h.orch.UpdatePlugin(context.Background(), "sws")
	if err != nil {
		t.Fatalf("UpdatePlugin failed: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Errorf("Status = %s, want skipped", result.Status)
	}
	if h.installer.calls != 0 {
		t.Error("Installer ran for an up-to-date plugin")
	}
}

// Test update reinstalls when a newer release exists
func TestUpdatePlugin_NewerRelease(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.releases.release = swsRelease()
	h.receipts.receipts["sws"] = &entities.InstallReceipt{Plugin: "sws", Version: "2.13.0.0"}

	result, err := h.orch.UpdatePlugin(context.Background(), "sws")
	if err != nil {
		t.Fatalf("UpdatePlugin failed: %v", err)
	}
	if result.Status != StatusInstalled {
		t.Errorf("Status = %s, want installed", result.Status)
	}
	if result.Version != "2.14.0.3" {
		t.Errorf("Version = %s, want 2.14.0.3", result.Version)
	}
	if len(h.prompter.questions) != 0 {
		t.Errorf("Update should not prompt: %v", h.prompter.questions)
	}
}

// Static-source plugins are refreshed on every update
func TestUpdatePlugin_StaticAlwaysRefreshes(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"reapack": reapackRecipe()})
	h.receipts.receipts["reapack"] = &entities.InstallReceipt{Plugin: "reapack", Version: "latest"}

	result, err := h.orch.UpdatePlugin(context.Background(), "reapack")
	if err != nil {
		t.Fatalf("UpdatePlugin failed: %v", err)
	}
	if result.Status != StatusInstalled {
		t.Errorf("Status = %s, want installed", result.Status)
	}
	if h.installer.calls != 1 {
		t.Errorf("Installer calls = %d, want 1", h.installer.calls)
	}
}

// Test uninstall removes files and the receipt
func TestUninstallPlugin(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.prompter.answer = true
	h.receipts.receipts["sws"] = &entities.InstallReceipt{
		Plugin:  "sws",
		Version: "2.14.0.3",
		Files:   []string{"/plugins/reaper_sws.dylib"},
	}

	removed, err := h.orch.UninstallPlugin(context.Background(), "sws")
	if err != nil {
		t.Fatalf("UninstallPlugin failed: %v", err)
	}
	if len(removed) != 1 {
		t.Errorf("Removed = %v, want one file", removed)
	}
	if h.receipts.receipts["sws"] != nil {
		t.Error("Receipt still present after uninstall")
	}
}

func TestUninstallPlugin_Declined(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})
	h.receipts.receipts["sws"] = &entities.InstallReceipt{Plugin: "sws", Version: "2.14.0.3"}

	_, err := h.orch.UninstallPlugin(context.Background(), "sws")
	if !errors.Is(err, entities.ErrDeclined) {
		t.Fatalf("Error = %v, want ErrDeclined", err)
	}
	if h.receipts.receipts["sws"] == nil {
		t.Error("Receipt removed despite decline")
	}
}

func TestUninstallPlugin_NotInstalled(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{"sws": swsRecipe()})

	if _, err := h.orch.UninstallPlugin(context.Background(), "sws"); err == nil {
		t.Fatal("Expected error for missing install, got nil")
	}
}

// Test the status report
func TestStatus(t *testing.T) {
	h := newHarness(t, map[string]*entities.PluginRecipe{
		"sws":     swsRecipe(),
		"reapack": reapackRecipe(),
	})
	h.releases.release = swsRelease()
	h.receipts.receipts["sws"] = &entities.InstallReceipt{Plugin: "sws", Version: "2.13.0.0"}

	statuses, err := h.orch.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("Statuses = %d, want 2", len(statuses))
	}

	// Sorted by recipe name: reapack then sws
	reapack, sws := statuses[0], statuses[1]

	if reapack.Plugin != "reapack" || reapack.Installed != "" || reapack.Latest != "" {
		t.Errorf("reapack status = %+v", reapack)
	}
	if reapack.UpdateAvailable {
		t.Error("reapack should not report an update")
	}

	if sws.Installed != "2.13.0.0" || sws.Latest != "2.14.0.3" {
		t.Errorf("sws status = %+v", sws)
	}
	if !sws.UpdateAvailable {
		t.Error("sws should report an update")
	}
}
