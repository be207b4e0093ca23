package main

import (
	"fmt"
	"os"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/commands"
	"github.com/nsfscore/nsfsctl/pkg/upgrade"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date
	cmdutil.RunningPackageVersion = upgrade.Version(version)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.LastExitCode(err))
	}
}
