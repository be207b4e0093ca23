// Package account implements account management commands for nsfsctl.
package account

import "github.com/spf13/cobra"

// Cmd is the parent command for account management.
var Cmd = &cobra.Command{
	Use:   "account",
	Short: "Account management",
	Long: `Manage nsfs_account documents in the ConfigFS root.

Examples:
  # Create an account
  nsfsctl account add --name alice --new_buckets_path /export/alice --uid 1000 --gid 1000

  # List accounts owned by a given uid
  nsfsctl account list --uid 1000

  # Regenerate an account's access key
  nsfsctl account update --name alice --regenerate

  # Delete an account
  nsfsctl account delete --name alice`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(deleteCmd)
}
