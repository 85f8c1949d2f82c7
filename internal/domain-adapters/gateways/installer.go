package gateways

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/reaplug/reaplug/internal/domain/entities"
)

const maxExtractedFileSize = 1 << 30 // 1GB per archive member

// confirmPrompter is the slice of prompting the installer needs.
type confirmPrompter interface {
	Confirm(question string) bool
}

// installTarget controls where a copied binary lands.
type installTarget struct {
	pluginsDir  string
	destination string // target filename, defaults to the source name
	overwrite   bool   // replace an existing file without asking again
}

// PluginInstaller places a downloaded artifact into the REAPER plugins
// directory, dispatching on file type: plain copy for loose binaries,
// the privileged system installer for .pkg, disk image mounting for
// .dmg, and extraction for .zip.
type PluginInstaller struct {
	runner   commandRunner
	prompter confirmPrompter
	goos     string
}

// NewPluginInstaller creates an installer that shells out to the real
// system tools.
func NewPluginInstaller(prompter confirmPrompter) *PluginInstaller {
	return &PluginInstaller{
		runner:   execRunner{},
		prompter: prompter,
		goos:     runtime.GOOS,
	}
}

// Install installs the artifact and returns the paths it created.
// Package installs write outside our control and return no paths.
// When overwrite is set, an existing file is replaced without asking.
// Every install path depends on macOS tooling or layout, so non-darwin
// hosts are refused up front.
func (pi *PluginInstaller) Install(ctx context.Context, artifact *entities.Artifact, pluginsDir, destination string, overwrite bool) ([]string, error) {
	if pi.goos != "darwin" {
		return nil, fmt.Errorf("%w (running on %s)", entities.ErrUnsupportedPlatform, pi.goos)
	}
	target := installTarget{pluginsDir: pluginsDir, destination: destination, overwrite: overwrite}

	switch artifact.Kind {
	case entities.KindCopy:
		return pi.installCopy(artifact.Path, target)
	case entities.KindPkg:
		return pi.installPkg(ctx, artifact.Path)
	case entities.KindDmg:
		return pi.installDmg(ctx, artifact, target)
	case entities.KindZip:
		return pi.installZip(ctx, artifact, target)
	default:
		return nil, fmt.Errorf("unsupported artifact kind %q", artifact.Kind)
	}
}

// RemoveFiles deletes previously installed files, tolerating ones that
// are already gone. It returns the paths actually removed.
func (pi *PluginInstaller) RemoveFiles(files []string) ([]string, error) {
	var removed []string
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to remove %s: %w", f, err)
		}
		removed = append(removed, f)
	}
	return removed, nil
}

func (pi *PluginInstaller) installCopy(src string, target installTarget) ([]string, error) {
	destName := target.destination
	if destName == "" {
		destName = filepath.Base(src)
	}
	dest := filepath.Join(target.pluginsDir, destName)

	if _, err := os.Stat(dest); err == nil && !target.overwrite {
		if !pi.prompter.Confirm(fmt.Sprintf("%s already exists, overwrite?", dest)) {
			return nil, entities.ErrDeclined
		}
	}

	if err := os.MkdirAll(target.pluginsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create plugins directory: %w", err)
	}
	if err := copyFile(src, dest); err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Installed %s\n", dest)
	return []string{dest}, nil
}

func (pi *PluginInstaller) installPkg(ctx context.Context, pkgPath string) ([]string, error) {
	if !pi.prompter.Confirm(fmt.Sprintf("Run the privileged installer for %s?", filepath.Base(pkgPath))) {
		return nil, entities.ErrDeclined
	}

	fmt.Fprintf(os.Stderr, "Running installer for %s (sudo may ask for your password)\n", filepath.Base(pkgPath))
	if _, err := pi.runner.Run(ctx, "sudo", "installer", "-pkg", pkgPath, "-target", "/"); err != nil {
		return nil, fmt.Errorf("package install failed: %w", err)
	}
	return nil, nil
}

func (pi *PluginInstaller) installDmg(ctx context.Context, artifact *entities.Artifact, target installTarget) ([]string, error) {
	mountPoint, err := os.MkdirTemp("", "reaplug-mnt-")
	if err != nil {
		return nil, fmt.Errorf("failed to create mount point: %w", err)
	}
	defer os.RemoveAll(mountPoint) //nolint:errcheck // best-effort cleanup

	if _, err := pi.runner.Run(ctx, "hdiutil", "attach", "-nobrowse", "-readonly", "-mountpoint", mountPoint, artifact.Path); err != nil {
		return nil, fmt.Errorf("failed to mount disk image: %w", err)
	}
	defer func() {
		if _, err := pi.runner.Run(ctx, "hdiutil", "detach", mountPoint); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not detach %s\n", mountPoint)
		}
	}()

	return pi.installPayload(ctx, artifact, mountPoint, target)
}

func (pi *PluginInstaller) installZip(ctx context.Context, artifact *entities.Artifact, target installTarget) ([]string, error) {
	extractDir, err := os.MkdirTemp(filepath.Dir(artifact.Path), "extracted-")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(extractDir) //nolint:errcheck // best-effort cleanup

	if err := extractZip(artifact.Path, extractDir); err != nil {
		return nil, err
	}

	return pi.installPayload(ctx, artifact, extractDir, target)
}

// installPayload locates the plugin inside an unpacked container and
// dispatches on what it finds.
func (pi *PluginInstaller) installPayload(ctx context.Context, artifact *entities.Artifact, dir string, target installTarget) ([]string, error) {
	payload, kind, err := findPayload(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(artifact.Path), err)
	}

	switch kind {
	case entities.KindCopy:
		return pi.installCopy(payload, target)
	case entities.KindPkg:
		return pi.installPkg(ctx, payload)
	default:
		return nil, fmt.Errorf("nested artifact kind %q is not installable", kind)
	}
}

// findPayload searches dir for an installable plugin, preferring loose
// .dylib binaries over .pkg installers.
func findPayload(dir string) (string, string, error) {
	var dylibs, pkgs []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".dylib":
			dylibs = append(dylibs, path)
		case ".pkg":
			pkgs = append(pkgs, path)
		}
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to scan payload: %w", err)
	}

	sort.Strings(dylibs)
	sort.Strings(pkgs)

	if len(dylibs) > 0 {
		return dylibs[0], entities.KindCopy, nil
	}
	if len(pkgs) > 0 {
		return pkgs[0], entities.KindPkg, nil
	}
	return "", "", errors.New("no installable payload found")
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	for _, f := range r.File {
		if err := extractZipEntry(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, destDir string) error {
	dest := filepath.Join(destDir, f.Name) //nolint:gosec // G305: checked below
	rel, err := filepath.Rel(destDir, dest)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("archive entry escapes destination: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0750)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer src.Close() //nolint:errcheck // read-only handle

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) //nolint:gosec // G304: path validated above
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, io.LimitReader(src, maxExtractedFileSize)); err != nil {
		out.Close() //nolint:errcheck // error path
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src) //nolint:gosec // G304: controlled download path
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close() //nolint:errcheck // read-only handle

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755) //nolint:gosec // G302,G304: plugin binaries must be executable
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck // error path
		return fmt.Errorf("failed to copy to %s: %w", dest, err)
	}
	return out.Close()
}
