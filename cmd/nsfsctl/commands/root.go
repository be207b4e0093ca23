// Package commands implements the nsfsctl CLI command tree over
// pkg/manageapi.
package commands

import (
	accountcmd "github.com/nsfscore/nsfsctl/cmd/nsfsctl/commands/account"
	bucketcmd "github.com/nsfscore/nsfsctl/cmd/nsfsctl/commands/bucket"
	glaciercmd "github.com/nsfscore/nsfsctl/cmd/nsfsctl/commands/glacier"
	upgradecmd "github.com/nsfscore/nsfsctl/cmd/nsfsctl/commands/upgrade"
	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nsfsctl",
	Short: "NSFS control plane management CLI",
	Long: `nsfsctl manages the accounts, buckets, and config-dir upgrades of an
NSFS-backed S3 control plane: a filesystem directory of JSON documents and
symlinks, no database or network service required.

Use "nsfsctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ConfigRoot, _ = cmd.Flags().GetString("config_root")
		cmdutil.Flags.ConfigRootBackend, _ = cmd.Flags().GetString("config_root_backend")
		cmdutil.Flags.CustomUpgradeScriptsDir, _ = cmd.Flags().GetString("custom_upgrade_scripts_dir")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// LastExitCode maps the error Execute returned to a process exit code.
func LastExitCode(err error) int {
	return cmdutil.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().String("config_root", "", "ConfigFS root directory (overrides config file / NSFS_NC_DEFAULT_CONF_DIR)")
	rootCmd.PersistentFlags().String("config_root_backend", "", "ConfigFS atomic-replace backend: none|gpfs")
	rootCmd.PersistentFlags().String("custom_upgrade_scripts_dir", "", "Directory of external upgrade scripts (manifest.json)")
	rootCmd.PersistentFlags().StringP("output", "o", "json", "Output format (json|yaml|table)")

	rootCmd.AddCommand(accountcmd.Cmd)
	rootCmd.AddCommand(bucketcmd.Cmd)
	rootCmd.AddCommand(upgradecmd.Cmd)
	rootCmd.AddCommand(glaciercmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
