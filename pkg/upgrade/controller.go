package upgrade

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/nsfscore/nsfsctl/internal/logger"
	"github.com/nsfscore/nsfsctl/pkg/configfs"
)

// Controller drives a resumable, phased upgrade of the config directory
// schema, gated on every host in the cluster already agreeing on a
// single package version.
type Controller struct {
	cfs              *configfs.ConfigFS
	customScriptsDir string

	// runningVersion is this host's own installed package version, used
	// to satisfy the precondition that expected_version matches what is
	// actually deployed here.
	runningVersion Version
}

// NewController returns a Controller over cfs. customScriptsDir may be
// empty. runningVersion is the package version this host is running.
func NewController(cfs *configfs.ConfigFS, customScriptsDir string, runningVersion Version) *Controller {
	return &Controller{cfs: cfs, customScriptsDir: customScriptsDir, runningVersion: runningVersion}
}

// StartOptions configures an upgrade run.
type StartOptions struct {
	// ExpectedVersion is the package version the caller believes is
	// already deployed uniformly across the cluster — not a new target.
	ExpectedVersion Version

	// ExpectedHosts is the full set of hostnames that must already be
	// recorded in system.json. Mandatory unless SkipVerification is set.
	ExpectedHosts []string

	// SkipVerification bypasses the host-set and version-convergence
	// gates below, for single-host deployments or forced retries.
	SkipVerification bool
}

// StartResult is the outcome of a successful Start call.
type StartResult struct {
	Message string             `json:"message"`
	NoOp    bool               `json:"no_op,omitempty"`
	Upgrade *InProgressUpgrade `json:"upgrade,omitempty"`
}

// Start verifies every pre-condition below, then — unless the config
// directory is already at its target schema version — runs every
// compiled-in and external script between the current and target
// config-dir version, in the CONFIG_DIR_LOCKED phase, recording the
// result in history.
//
// Pre-conditions (all refuse with an error, never a panic):
//   - system.json must already exist; it is bootstrapped externally.
//   - ExpectedVersion and ExpectedHosts are both required.
//   - The set of hosts recorded in system.json must equal ExpectedHosts.
//   - ExpectedVersion must equal this host's own running package version.
//   - Every recorded host's current_version must equal ExpectedVersion.
//   - This host's version must be >= the oldest recorded current_version.
//
// A failed script leaves phase at CONFIG_DIR_LOCKED with the error recorded
// in in_progress_upgrade, so a later Start refuses until that phase is
// cleared. registeredScripts/discoverExternalScripts select only scripts
// newer than the config dir's recorded version, which advances only after
// every script in a run succeeds; a successful run is therefore never
// repeated, while scripts that completed in a failed run are selected again.
func (c *Controller) Start(ctx context.Context, opts StartOptions) (*StartResult, error) {
	doc, existed, err := readSystemDoc(c.cfs)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, fmt.Errorf("upgrade: system does not exist")
	}
	if opts.ExpectedVersion == "" {
		return nil, fmt.Errorf("upgrade: expected_version is required")
	}
	if !opts.SkipVerification && len(opts.ExpectedHosts) == 0 {
		return nil, fmt.Errorf("upgrade: expected_hosts is required")
	}

	if !opts.SkipVerification {
		if err := c.checkHostPreconditions(doc, opts); err != nil {
			return nil, err
		}
	}

	if doc.ConfigDirectory != nil && doc.ConfigDirectory.Phase == PhaseConfigDirLocked {
		return nil, fmt.Errorf("upgrade: config directory is locked by a concurrent upgrade")
	}

	target, err := compiledConfigDirVersion(c.customScriptsDir)
	if err != nil {
		return nil, err
	}

	var from Version
	var history ConfigDirUpgradeHistory
	if doc.ConfigDirectory != nil {
		from = doc.ConfigDirectory.ConfigDirVersion
		history = doc.ConfigDirectory.UpgradeHistory
	}

	if from.Equal(target) {
		return &StartResult{Message: "config_dir_version already at target, nothing to upgrade", NoOp: true}, nil
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("upgrade: hostname: %w", err)
	}

	inProgress := &InProgressUpgrade{
		StartTimestamp:       time.Now().UTC(),
		RunningHost:          host,
		PackageFromVersion:   opts.ExpectedVersion,
		PackageToVersion:     opts.ExpectedVersion,
		ConfigDirFromVersion: from,
		ConfigDirToVersion:   target,
	}
	doc.ConfigDirectory = &ConfigDirectory{
		ConfigDirVersion:  from,
		Phase:             PhaseConfigDirLocked,
		InProgressUpgrade: inProgress,
		UpgradeHistory:    history,
	}
	if err := writeSystemDoc(c.cfs, doc); err != nil {
		return nil, err
	}

	scripts := registeredScripts(from, target)
	external, err := discoverExternalScripts(c.customScriptsDir, from, target)
	if err != nil {
		return nil, err
	}
	scripts = append(scripts, external...)
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version.Compare(scripts[j].Version) < 0 })

	for _, s := range scripts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("running upgrade script", logger.Script(string(s.Version)), logger.Phase(string(PhaseConfigDirLocked)))
		if err := s.Run(c.cfs); err != nil {
			inProgress.Error = err.Error()
			if werr := writeSystemDoc(c.cfs, doc); werr != nil {
				return nil, werr
			}
			return nil, fmt.Errorf("upgrade: script %s: %w", s.Version, err)
		}
		inProgress.CompletedScripts = append(inProgress.CompletedScripts, string(s.Version))
		if err := writeSystemDoc(c.cfs, doc); err != nil {
			return nil, err
		}
	}

	doc.ConfigDirectory.UpgradeHistory.SuccessfulUpgrades = append(
		[]InProgressUpgrade{*inProgress}, doc.ConfigDirectory.UpgradeHistory.SuccessfulUpgrades...)
	doc.ConfigDirectory.InProgressUpgrade = nil
	doc.ConfigDirectory.Phase = PhaseConfigDirUnlocked
	doc.ConfigDirectory.ConfigDirVersion = target
	if err := writeSystemDoc(c.cfs, doc); err != nil {
		return nil, err
	}

	return &StartResult{
		Message: fmt.Sprintf("config directory migrated to %s", target),
		Upgrade: inProgress,
	}, nil
}

// checkHostPreconditions enforces the host-set and version-convergence
// gates documented on Start.
func (c *Controller) checkHostPreconditions(doc *SystemDoc, opts StartOptions) error {
	recorded := make(map[string]bool, len(doc.Hosts))
	for h := range doc.Hosts {
		recorded[h] = true
	}
	expected := make(map[string]bool, len(opts.ExpectedHosts))
	for _, h := range opts.ExpectedHosts {
		expected[h] = true
	}
	for h := range expected {
		if !recorded[h] {
			return fmt.Errorf("upgrade: system.json is missing expected_hosts entry %q", h)
		}
	}
	for h := range recorded {
		if !expected[h] {
			return fmt.Errorf("upgrade: system.json host %q is not present in expected_hosts", h)
		}
	}

	if !opts.ExpectedVersion.Equal(c.runningVersion) {
		return fmt.Errorf("upgrade: expected_version %s does not match the user's expected version (running %s)",
			opts.ExpectedVersion, c.runningVersion)
	}

	var oldest Version
	first := true
	for _, hr := range doc.Hosts {
		if !hr.CurrentVersion.Equal(opts.ExpectedVersion) {
			return fmt.Errorf("upgrade: host package versions do not match until all nodes have the expected version")
		}
		if first || hr.CurrentVersion.LessThan(oldest) {
			oldest = hr.CurrentVersion
			first = false
		}
	}
	if c.runningVersion.LessThan(oldest) {
		return fmt.Errorf("upgrade: host package versions do not match until all nodes have the expected version")
	}
	return nil
}

// Status returns the in-progress upgrade record, or nil if none is
// running.
func (c *Controller) Status() (*InProgressUpgrade, error) {
	doc, existed, err := readSystemDoc(c.cfs)
	if err != nil {
		return nil, err
	}
	if !existed || doc.ConfigDirectory == nil {
		return nil, nil
	}
	return doc.ConfigDirectory.InProgressUpgrade, nil
}

// History returns every recorded config-dir upgrade, newest first.
func (c *Controller) History() ([]InProgressUpgrade, error) {
	doc, existed, err := readSystemDoc(c.cfs)
	if err != nil {
		return nil, err
	}
	if !existed || doc.ConfigDirectory == nil {
		return nil, nil
	}
	return doc.ConfigDirectory.UpgradeHistory.SuccessfulUpgrades, nil
}
