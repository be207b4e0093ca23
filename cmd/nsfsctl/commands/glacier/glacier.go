// Package glacier implements the GlacierWAL migrate/restore driving
// commands for nsfsctl: the periodic jobs and one-shot requests spec'd in
// §4.4, exposed as CLI entry points so they can be invoked from cron or
// an operator shell the same way the rest of ManageAPI is.
package glacier

import "github.com/spf13/cobra"

// Cmd is the parent command for GlacierWAL migrate/restore operations.
var Cmd = &cobra.Command{
	Use:   "glacier",
	Short: "Glacier migrate/restore WAL operations",
	Long: `Drive the migrate and restore GlacierWAL queues: process sealed
segments through the configured glacier.Backend, request an object
restore, and sweep expired restores back to cold storage.

Examples:
  # Process every sealed migrate segment (run this on a schedule)
  nsfsctl glacier migrate_run

  # Request a restore, available for 3 days once the job runs
  nsfsctl glacier restore_start --bucket b1 --key path/to/object --days 3

  # Process every sealed restore segment (run this on a schedule)
  nsfsctl glacier restore_run

  # Revert any restore whose availability window has elapsed
  nsfsctl glacier restore_sweep`,
}

func init() {
	Cmd.AddCommand(migrateRunCmd)
	Cmd.AddCommand(restoreStartCmd)
	Cmd.AddCommand(restoreRunCmd)
	Cmd.AddCommand(restoreSweepCmd)
}
