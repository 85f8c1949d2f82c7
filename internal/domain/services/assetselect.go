// Package services holds pure domain logic with no I/O dependencies.
package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reaplug/reaplug/internal/domain/entities"
)

// archAliasTable maps canonical macOS architecture names to the tokens
// upstream projects use in asset filenames.
var archAliasTable = map[string][]string{
	"arm64":  {"aarch64"},
	"x86_64": {"amd64", "x64", "intel"},
	"i386":   {"x86", "i686", "386"},
}

// Scoring weights. An exact architecture token beats an alias, which
// beats a universal binary; extension priority breaks ties between
// architectures packaged differently.
const (
	scoreArchExact     = 6
	scoreArchAlias     = 4
	scoreArchUniversal = 2
	scoreKeyword       = 2
)

// ArchAliases returns the filename tokens identifying an architecture,
// including the canonical name itself, sorted for determinism.
func ArchAliases(arch string) []string {
	base := strings.ToLower(arch)
	seen := map[string]struct{}{base: {}}
	for _, alias := range archAliasTable[base] {
		seen[strings.ToLower(alias)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for token := range seen {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// SelectAsset picks the release asset matching the target architecture
// and the recipe's extension/keyword hints. Selection is deterministic:
// a tie for the best score is an error rather than an arbitrary
// choice, and checksum/signature sidecar files never match.
func SelectAsset(assets []entities.ReleaseAsset, dl entities.DownloadConfig, arch string) (*entities.ReleaseAsset, error) {
	exact := strings.ToLower(arch)
	aliases := ArchAliases(arch)

	var best, runnerUp *entities.ReleaseAsset
	bestScore := 0
	considered := make([]string, 0, len(assets))

	for i := range assets {
		name := strings.ToLower(assets[i].Name)
		if looksLikeSupplemental(name) {
			continue
		}
		considered = append(considered, assets[i].Name)

		extScore, ok := extensionScore(name, dl.Extensions)
		if !ok {
			continue
		}

		archScore := 0
		switch {
		case strings.Contains(name, exact):
			archScore = scoreArchExact
		case containsAny(name, aliases, exact):
			archScore = scoreArchAlias
		case strings.Contains(name, "universal"):
			archScore = scoreArchUniversal
		}
		if dl.RequireArch && archScore == 0 {
			continue
		}

		score := archScore + extScore
		for _, kw := range dl.Keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				score += scoreKeyword
			}
		}
		if score == 0 {
			continue
		}

		switch {
		case best == nil || score > bestScore:
			best = &assets[i]
			bestScore = score
			runnerUp = nil
		case score == bestScore:
			runnerUp = &assets[i]
		}
	}

	if best == nil {
		if len(considered) == 0 {
			return nil, fmt.Errorf("release has no installable assets")
		}
		return nil, fmt.Errorf("no asset matches %s among: %s", arch, strings.Join(considered, ", "))
	}
	if runnerUp != nil {
		return nil, fmt.Errorf("assets tie for selection: %s and %s", best.Name, runnerUp.Name)
	}
	return best, nil
}

// extensionScore returns the priority score of the first extension the
// name carries. With no extension list configured every name passes at
// zero priority; otherwise a name matching none of them is rejected.
func extensionScore(name string, exts []string) (int, bool) {
	if len(exts) == 0 {
		return 0, true
	}
	for i, ext := range exts {
		if ext != "" && strings.HasSuffix(name, strings.ToLower(ext)) {
			return len(exts) - i, true
		}
	}
	return 0, false
}

// looksLikeSupplemental reports whether an asset is a checksum or
// signature sidecar rather than an installable payload.
func looksLikeSupplemental(name string) bool {
	for _, suffix := range []string{".asc", ".sig", ".minisig", ".sha256", ".sha512", ".pub"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return strings.Contains(name, "sha256") ||
		strings.Contains(name, "checksum") ||
		strings.Contains(name, "signature")
}

func containsAny(haystack string, needles []string, skip string) bool {
	for _, needle := range needles {
		if needle != "" && needle != skip && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
