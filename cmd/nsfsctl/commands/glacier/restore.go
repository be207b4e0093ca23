package glacier

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	restoreBucket string
	restoreKey    string
	restoreDays   int
)

var restoreStartCmd = &cobra.Command{
	Use:   "restore_start",
	Short: "Request a restore of a glacier-migrated object",
	RunE:  runRestoreStart,
}

var restoreRunCmd = &cobra.Command{
	Use:   "restore_run",
	Short: "Process every sealed restore WAL segment",
	RunE:  runRestoreRun,
}

var restoreSweepCmd = &cobra.Command{
	Use:   "restore_sweep",
	Short: "Revert any restore whose availability window has elapsed",
	RunE:  runRestoreSweep,
}

func init() {
	restoreStartCmd.Flags().StringVar(&restoreBucket, "bucket", "", "Bucket name (required)")
	restoreStartCmd.Flags().StringVar(&restoreKey, "key", "", "Object key, relative to the bucket path (required)")
	restoreStartCmd.Flags().IntVar(&restoreDays, "days", 0, "Days the restored copy stays available before reverting (required)")
}

func runRestoreStart(cmd *cobra.Command, args []string) error {
	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	opts := manageapi.GlacierRestoreStartOptions{
		Bucket: restoreBucket,
		Key:    restoreKey,
		Days:   restoreDays,
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionRestoreStart, opts))
	return cmdutil.PrintResult(res)
}

func runRestoreRun(cmd *cobra.Command, args []string) error {
	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionRestoreRun, nil))
	return cmdutil.PrintResult(res)
}

func runRestoreSweep(cmd *cobra.Command, args []string) error {
	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionRestoreSweep, nil))
	return cmdutil.PrintResult(res)
}
