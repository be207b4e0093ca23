package upgrade

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsfscore/nsfsctl/pkg/configfs"
)

// Phase latches which half of a config-dir schema migration is in
// progress. The config directory is locked (read-only to ordinary
// ConfigFS callers) while scripts run against it, and unlocked once every
// host has finished applying the phase's scripts.
type Phase string

const (
	PhaseNone              Phase = ""
	PhaseConfigDirLocked   Phase = "CONFIG_DIR_LOCKED"
	PhaseConfigDirUnlocked Phase = "CONFIG_DIR_UNLOCKED"
)

// HostHistoryEntry is one completed package-version transition a single
// host reports in its own upgrade_history.
type HostHistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	FromVersion Version   `json:"from_version"`
	ToVersion   Version   `json:"to_version"`
}

// HostUpgradeHistory is a host's upgrade_history record.
type HostUpgradeHistory struct {
	SuccessfulUpgrades []HostHistoryEntry `json:"successful_upgrades,omitempty"`
}

// HostRecord is the per-hostname entry in system.json: the package
// version that host is currently running, plus its own upgrade history.
type HostRecord struct {
	CurrentVersion Version            `json:"current_version"`
	UpgradeHistory HostUpgradeHistory `json:"upgrade_history"`
}

// InProgressUpgrade is the config_directory.in_progress_upgrade record:
// present while phase is CONFIG_DIR_LOCKED, and moved onto the front of
// config_directory.upgrade_history.successful_upgrades on completion. The
// same shape is reused for completed history entries, because a
// completed upgrade is exactly an in_progress_upgrade record with its
// terminal completed_scripts/error populated.
type InProgressUpgrade struct {
	StartTimestamp time.Time `json:"start_timestamp"`
	RunningHost    string    `json:"running_host"`

	// PackageFromVersion/PackageToVersion and ConfigDirFromVersion/
	// ConfigDirToVersion are deliberately separate, denormalised fields:
	// a config-dir schema migration does not necessarily track a package
	// version change one-to-one.
	PackageFromVersion Version `json:"package_from_version"`
	PackageToVersion   Version `json:"package_to_version"`

	ConfigDirFromVersion Version `json:"config_dir_from_version"`
	ConfigDirToVersion   Version `json:"config_dir_to_version"`

	CompletedScripts []string `json:"completed_scripts,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// ConfigDirUpgradeHistory is config_directory.upgrade_history.
type ConfigDirUpgradeHistory struct {
	SuccessfulUpgrades []InProgressUpgrade `json:"successful_upgrades,omitempty"`
}

// ConfigDirectory is the optional top-level config_directory record in
// system.json.
type ConfigDirectory struct {
	ConfigDirVersion  Version                 `json:"config_dir_version"`
	Phase             Phase                   `json:"phase,omitempty"`
	InProgressUpgrade *InProgressUpgrade      `json:"in_progress_upgrade,omitempty"`
	UpgradeHistory    ConfigDirUpgradeHistory `json:"upgrade_history"`
}

// SystemDoc is system.json: a mapping from hostname to its HostRecord,
// plus one reserved "config_directory" key. Because the hostname keys
// are dynamic, SystemDoc marshals itself by hand rather than via struct
// tags.
type SystemDoc struct {
	Hosts           map[string]*HostRecord
	ConfigDirectory *ConfigDirectory
}

const configDirectoryKey = "config_directory"

func (d SystemDoc) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Hosts)+1)
	for host, rec := range d.Hosts {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("upgrade: marshal host %s: %w", host, err)
		}
		out[host] = data
	}
	if d.ConfigDirectory != nil {
		data, err := json.Marshal(d.ConfigDirectory)
		if err != nil {
			return nil, fmt.Errorf("upgrade: marshal config_directory: %w", err)
		}
		out[configDirectoryKey] = data
	}
	return json.Marshal(out)
}

func (d *SystemDoc) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("upgrade: parse system.json: %w", err)
	}

	d.Hosts = make(map[string]*HostRecord, len(raw))
	for key, value := range raw {
		if key == configDirectoryKey {
			var cd ConfigDirectory
			if err := json.Unmarshal(value, &cd); err != nil {
				return fmt.Errorf("upgrade: parse config_directory: %w", err)
			}
			d.ConfigDirectory = &cd
			continue
		}
		var rec HostRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("upgrade: parse host %s: %w", key, err)
		}
		d.Hosts[key] = &rec
	}
	return nil
}

// readSystemDoc loads system.json. existed reports whether the file was
// present: a brand new config root that has never been bootstrapped by
// an external deploy step returns an empty, non-nil doc with existed
// false, not an error.
func readSystemDoc(cfs *configfs.ConfigFS) (doc *SystemDoc, existed bool, err error) {
	data, err := cfs.ReadSystemFile()
	if err != nil {
		return &SystemDoc{Hosts: map[string]*HostRecord{}}, false, nil
	}
	var d SystemDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, true, err
	}
	return &d, true, nil
}

// writeSystemDoc atomically replaces system.json.
func writeSystemDoc(cfs *configfs.ConfigFS, doc *SystemDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("upgrade: marshal system.json: %w", err)
	}
	return cfs.WriteSystemFile(data)
}
