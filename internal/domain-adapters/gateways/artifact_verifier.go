package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reaplug/reaplug/internal/domain/entities"
	"github.com/reaplug/reaplug/internal/domain/interfaces"
)

// detachedSignatureVerifier is the GPG surface the verifier composes
type detachedSignatureVerifier interface {
	ImportKeys(ctx context.Context, keyIDs []string) error
	ImportKeysFromURL(ctx context.Context, keysURL string) error
	ImportKeyFromFile(keyPath string) error
	VerifyDetached(filePath, sigPath string) error
	GetKeyringSize() int
}

// minisignSignatureVerifier is the minisign surface the verifier composes
type minisignSignatureVerifier interface {
	Verify(filePath, sigPath, publicKey string) error
}

// sidecarFetcher downloads checksum and signature sidecar files
type sidecarFetcher interface {
	FetchAsset(ctx context.Context, url, destDir, filename string) (string, error)
}

// ArtifactVerifier checks a downloaded artifact against whatever the
// recipe's security block declares: a pinned SHA256, a SHA256SUMS-style
// checksum asset, a minisign signature, or a detached GPG signature.
// Recipes with no security block verify nothing.
type ArtifactVerifier struct {
	checksums *checksumVerifier
	gpg       detachedSignatureVerifier
	minisign  minisignSignatureVerifier
	fetcher   sidecarFetcher
	logger    interfaces.Logger
}

// NewArtifactVerifier creates a composite verifier
func NewArtifactVerifier(gpg detachedSignatureVerifier, minisign minisignSignatureVerifier, fetcher sidecarFetcher, logger interfaces.Logger) *ArtifactVerifier {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ArtifactVerifier{
		checksums: NewChecksumVerifier(),
		gpg:       gpg,
		minisign:  minisign,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// Verify runs every check the recipe declares against the artifact at
// artifactPath. Sidecar files are downloaded into workDir. release may
// be nil for static-URL recipes, in which case asset-based checks fail.
func (v *ArtifactVerifier) Verify(ctx context.Context, recipe *entities.PluginRecipe, release *entities.Release, artifactPath, workDir string) error {
	sec := recipe.Security
	assetName := filepath.Base(artifactPath)
	checked := 0

	if sec.SHA256 != "" {
		if err := v.checksums.VerifyChecksum(ctx, artifactPath, sec.SHA256); err != nil {
			return fmt.Errorf("%s: %w", recipe.Name, err)
		}
		v.logger.Info("checksum verified", interfaces.F("plugin", recipe.Name))
		checked++
	}

	if sec.ChecksumAsset != "" {
		sumsPath, err := v.fetchSidecar(ctx, release, sec.ChecksumAsset, workDir)
		if err != nil {
			return fmt.Errorf("%s: checksum asset: %w", recipe.Name, err)
		}
		//nolint:gosec // G304: sumsPath lives in a controlled temp directory
		data, err := os.ReadFile(sumsPath)
		if err != nil {
			return fmt.Errorf("%s: failed to read checksum file: %w", recipe.Name, err)
		}
		expected, err := ExtractChecksum(data, assetName)
		if err != nil {
			return fmt.Errorf("%s: %w", recipe.Name, err)
		}
		if err := v.checksums.VerifyChecksum(ctx, artifactPath, expected); err != nil {
			return fmt.Errorf("%s: %w", recipe.Name, err)
		}
		v.logger.Info("checksum verified", interfaces.F("plugin", recipe.Name), interfaces.F("source", sec.ChecksumAsset))
		checked++
	}

	if sec.MinisignKey != "" && sec.MinisignSigAsset != "" {
		sigPath, err := v.fetchSidecar(ctx, release, sec.MinisignSigAsset, workDir)
		if err != nil {
			return fmt.Errorf("%s: minisign signature asset: %w", recipe.Name, err)
		}
		if err := v.minisign.Verify(artifactPath, sigPath, sec.MinisignKey); err != nil {
			return fmt.Errorf("%s: %w", recipe.Name, err)
		}
		v.logger.Info("minisign signature verified", interfaces.F("plugin", recipe.Name))
		checked++
	}

	if sec.SignatureAsset != "" {
		switch {
		case sec.GPGKeyFile != "":
			if err := v.gpg.ImportKeyFromFile(sec.GPGKeyFile); err != nil {
				return fmt.Errorf("%s: %w", recipe.Name, err)
			}
		case sec.GPGKeysURL != "":
			if err := v.gpg.ImportKeysFromURL(ctx, sec.GPGKeysURL); err != nil {
				return fmt.Errorf("%s: %w", recipe.Name, err)
			}
		case len(sec.GPGKeyIDs) > 0:
			if err := v.gpg.ImportKeys(ctx, sec.GPGKeyIDs); err != nil {
				return fmt.Errorf("%s: %w", recipe.Name, err)
			}
		default:
			return fmt.Errorf("%s: signature_asset declared without gpg_key_file, gpg_key_ids, or gpg_keys_url", recipe.Name)
		}
		v.logger.Debug("GPG keyring ready", interfaces.F("plugin", recipe.Name), interfaces.F("keys", v.gpg.GetKeyringSize()))

		sigPath, err := v.fetchSidecar(ctx, release, sec.SignatureAsset, workDir)
		if err != nil {
			return fmt.Errorf("%s: signature asset: %w", recipe.Name, err)
		}
		if err := v.gpg.VerifyDetached(artifactPath, sigPath); err != nil {
			return fmt.Errorf("%s: %w", recipe.Name, err)
		}
		v.logger.Info("GPG signature verified", interfaces.F("plugin", recipe.Name))
		checked++
	}

	if checked == 0 {
		v.logger.Debug("no verification declared", interfaces.F("plugin", recipe.Name))
	}
	return nil
}

func (v *ArtifactVerifier) fetchSidecar(ctx context.Context, release *entities.Release, assetName, workDir string) (string, error) {
	if release == nil {
		return "", fmt.Errorf("asset %s requires a release source", assetName)
	}
	asset := release.FindAsset(assetName)
	if asset == nil {
		return "", fmt.Errorf("asset %s not found in release %s", assetName, release.TagName)
	}
	return v.fetcher.FetchAsset(ctx, asset.BrowserDownloadURL, workDir, asset.Name)
}
