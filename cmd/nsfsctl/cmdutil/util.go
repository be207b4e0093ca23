// Package cmdutil provides shared utilities for nsfsctl commands: global
// flag storage, ManageAPI server construction, and result rendering.
package cmdutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nsfscore/nsfsctl/internal/cli/output"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/internal/config"
	"github.com/nsfscore/nsfsctl/pkg/accounts"
	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/nsfscore/nsfsctl/pkg/glacier"
	"github.com/nsfscore/nsfsctl/pkg/glacier/s3backend"
	"github.com/nsfscore/nsfsctl/pkg/glacierwal"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/nsfscore/nsfsctl/pkg/upgrade"
	_ "github.com/nsfscore/nsfsctl/pkg/upgrade/scripts"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// RunningPackageVersion is this host's own installed package version, set
// by main from the build-time version ldflag before any command runs.
// upgrade.Controller compares it against the caller-supplied
// expected_version and against every host recorded in system.json.
var RunningPackageVersion upgrade.Version

// GlobalFlags holds the global flag values shared by every nsfsctl
// subcommand.
type GlobalFlags struct {
	ConfigRoot              string
	ConfigRootBackend       string
	CustomUpgradeScriptsDir string
	Output                  string
}

// GetOutputFormatParsed returns the parsed output format, defaulting to
// JSON (the nsfsctl default differs from the table-first CLIs this
// tool's command shape is patterned on, since ManageAPI results are
// primarily consumed by scripts, not operators watching a terminal).
func GetOutputFormatParsed() (output.Format, error) {
	if Flags.Output == "" {
		return output.FormatJSON, nil
	}
	return output.ParseFormat(Flags.Output)
}

// NewServer builds a manageapi.Server over the configured ConfigFS root,
// an account cache, and an upgrade controller. Callers that don't touch
// upgrade or account-cache behavior still get a fully wired Server, since
// ManageAPI dispatches to all four resource types (account, bucket,
// upgrade, glacier) through one struct.
func NewServer() (*manageapi.Server, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	root := cfg.ConfigRoot
	if Flags.ConfigRoot != "" {
		root = Flags.ConfigRoot
	}
	backend := cfg.ConfigRootBackendKind()
	if Flags.ConfigRootBackend != "" {
		backend = configfs.Backend(Flags.ConfigRootBackend)
	}

	cfs, err := configfs.New(root, backend)
	if err != nil {
		return nil, fmt.Errorf("open config root %s: %w", root, err)
	}

	cache := accounts.NewCache(filepath.Join(cfs.Root(), string(configfs.AccountsDir)), 256, 30*time.Second)

	scriptsDir := cfg.Upgrade.CustomScriptsDir
	if Flags.CustomUpgradeScriptsDir != "" {
		scriptsDir = Flags.CustomUpgradeScriptsDir
	}
	ctl := upgrade.NewController(cfs, scriptsDir, RunningPackageVersion)

	var migrateWAL, restoreWAL *glacierwal.WAL
	if cfg.Glacier.LogsDir != "" {
		migrateWAL, err = glacierwal.Open(cfg.Glacier.LogsDir, "migrate")
		if err != nil {
			return nil, fmt.Errorf("open migrate WAL: %w", err)
		}
		restoreWAL, err = glacierwal.Open(cfg.Glacier.LogsDir, "restore")
		if err != nil {
			return nil, fmt.Errorf("open restore WAL: %w", err)
		}
	}

	var backendImpl glacier.Backend = glacier.NullBackend{}
	if cfg.Glacier.Backend.Bucket != "" {
		backendImpl, err = s3backend.New(context.Background(), s3backend.Config{
			Region:          cfg.Glacier.Backend.Region,
			Endpoint:        cfg.Glacier.Backend.Endpoint,
			AccessKeyID:     cfg.Glacier.Backend.AccessKeyID,
			SecretAccessKey: cfg.Glacier.Backend.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("build glacier backend: %w", err)
		}
	}

	return manageapi.NewServer(cfs, cache, ctl, backendImpl, migrateWAL, restoreWAL), nil
}

// DispatchError wraps a manageapi.Result whose Err is set, distinguishing
// an operation failure reported by ManageAPI from a local usage or setup
// error so main can map each to its own exit code.
type DispatchError struct {
	Result manageapi.Result
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Result.Err.Code, e.Result.Err.Message)
}

// PrintResult renders a manageapi.Result in the configured output format
// and returns a *DispatchError when the result carries an APIError.
func PrintResult(res manageapi.Result) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	if res.Err != nil {
		switch format {
		case output.FormatJSON:
			_ = output.PrintJSON(os.Stderr, res)
		case output.FormatYAML:
			_ = output.PrintYAML(os.Stderr, res)
		default:
			output.NewPrinter(os.Stderr, format, false).Error(fmt.Sprintf("%s: %s", res.Err.Code, res.Err.Message))
		}
		return &DispatchError{Result: res}
	}

	printer := output.NewPrinter(os.Stdout, format, true)
	return printer.Print(res.Response)
}

// HandleAbort checks if err indicates the user aborted a prompt (Ctrl+C)
// and, if so, prints a message and returns nil so the command exits
// cleanly instead of reporting an error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

// ExitCode maps an error produced by a cobra RunE to the process exit
// code: 0 on nil, 2 for a ManageAPI-reported operation failure, 1 for
// anything else (bad flags, local setup failures).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if _, ok := err.(*DispatchError); ok {
		return 2
	}
	return 1
}
