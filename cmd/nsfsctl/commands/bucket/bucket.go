// Package bucket implements bucket management commands for nsfsctl.
package bucket

import "github.com/spf13/cobra"

// Cmd is the parent command for bucket management.
var Cmd = &cobra.Command{
	Use:   "bucket",
	Short: "Bucket management",
	Long: `Manage nsfs_bucket documents in the ConfigFS root.

Examples:
  # Create a bucket under an existing account
  nsfsctl bucket add --name photos --owner alice --path /export/alice/photos

  # List buckets owned by an account
  nsfsctl bucket list --owner alice

  # Delete a bucket
  nsfsctl bucket delete --name photos`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(deleteCmd)
}
