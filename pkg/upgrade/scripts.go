package upgrade

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nsfscore/nsfsctl/pkg/configfs"
)

// Script is one compiled-in upgrade step. Run receives the ConfigFS
// handle so a script can read and rewrite any account/bucket/access-key
// file as part of a config-dir schema migration.
type Script struct {
	Version     Version
	Description string
	Run         func(cfs *configfs.ConfigFS) error
}

var (
	registryMu sync.Mutex
	registry   []Script
)

// Register adds a compiled-in upgrade script. Scripts call this from an
// init() function in pkg/upgrade/scripts, the Go-native equivalent of the
// external per-version script files a shell-script-based upgrade tool
// would discover on disk.
func Register(s Script) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, s)
}

// registeredScripts returns every compiled-in script whose version is
// greater than from and less than or equal to to, ordered oldest first.
func registeredScripts(from, to Version) []Script {
	registryMu.Lock()
	defer registryMu.Unlock()

	var out []Script
	for _, s := range registry {
		if s.Version.Compare(from) > 0 && s.Version.Compare(to) <= 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) < 0 })
	return out
}

// externalScriptManifest describes the scripts in a custom upgrade
// scripts directory (--custom_upgrade_scripts_dir), one entry per
// executable. The manifest, not the directory listing, names the scripts;
// they are run in ascending version order, whatever order the manifest
// lists them in.
type externalScriptManifest struct {
	Scripts []struct {
		Version     string `json:"version"`
		Executable  string `json:"executable"`
		Description string `json:"description"`
	} `json:"scripts"`
}

// discoverExternalScripts reads manifest.json from dir and returns the
// external scripts in between from (exclusive) and to (inclusive).
func discoverExternalScripts(dir string, from, to Version) ([]Script, error) {
	all, err := allExternalScripts(dir)
	if err != nil {
		return nil, err
	}
	var out []Script
	for _, s := range all {
		if s.Version.Compare(from) <= 0 || s.Version.Compare(to) > 0 {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// allExternalScripts reads manifest.json from dir, unfiltered and sorted
// ascending by version. dir may be empty, in which case there are no
// external scripts to discover.
func allExternalScripts(dir string) ([]Script, error) {
	if dir == "" {
		return nil, nil
	}
	manifestPath := filepath.Join(dir, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("upgrade: read %s: %w", manifestPath, err)
	}

	var manifest externalScriptManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("upgrade: parse %s: %w", manifestPath, err)
	}

	out := make([]Script, 0, len(manifest.Scripts))
	for _, entry := range manifest.Scripts {
		execPath := filepath.Join(dir, entry.Executable)
		out = append(out, Script{
			Version:     Version(entry.Version),
			Description: entry.Description,
			Run:         runExternalScript(execPath),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) < 0 })
	return out, nil
}

// compiledConfigDirVersion is the highest version among every registered
// compiled-in script and every external script discovered under dir: the
// implicit target config_dir_version a call to Start migrates toward.
func compiledConfigDirVersion(dir string) (Version, error) {
	registryMu.Lock()
	var max Version
	for _, s := range registry {
		if s.Version.Compare(max) > 0 {
			max = s.Version
		}
	}
	registryMu.Unlock()

	external, err := allExternalScripts(dir)
	if err != nil {
		return "", err
	}
	for _, s := range external {
		if s.Version.Compare(max) > 0 {
			max = s.Version
		}
	}
	return max, nil
}

// runExternalScript returns a Script.Run closure that execs path with the
// config root as its sole argument, matching the contract external
// upgrade scripts are expected to follow: a nonzero exit code is a
// failed migration step.
func runExternalScript(path string) func(cfs *configfs.ConfigFS) error {
	return func(cfs *configfs.ConfigFS) error {
		cmd := exec.Command(path, cfs.Root())
		cmd.Env = os.Environ()
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("upgrade: script %s failed: %w (output: %s)", path, err, output)
		}
		return nil
	}
}
