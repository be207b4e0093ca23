// Package upgrade implements config-dir upgrade commands for nsfsctl.
package upgrade

import "github.com/spf13/cobra"

// Cmd is the parent command for config-dir upgrade management.
var Cmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Config directory upgrade management",
	Long: `Drive and inspect UpgradeController's phased migration of the
ConfigFS root's on-disk schema.

Examples:
  # Run every pending upgrade script, single host
  nsfsctl upgrade start --expected_version 5.16.0 --skip_verification

  # Run an upgrade gated on a multi-host cluster converging first
  nsfsctl upgrade start --expected_version 5.16.0 --expected_hosts host-a,host-b

  # Inspect the current phase and versions
  nsfsctl upgrade status

  # Review every upgrade ever recorded
  nsfsctl upgrade history`,
}

func init() {
	Cmd.AddCommand(startCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(historyCmd)
}
