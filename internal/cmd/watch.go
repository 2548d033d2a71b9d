package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fangio/fangio/internal/config"
	"github.com/fangio/fangio/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <planId>",
	Short: "Follow a plan's events in a live terminal timeline",
	Long: `Render a plan's audit events as a live timeline. Streams from a running
server when one is reachable; otherwise watches the data directory for the
persisted run and renders it when it lands.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	planID := args[0]
	ctx := cmd.Context()

	source, err := tui.FollowSSE(ctx, serverURL(), planID)
	if err != nil {
		cfg := config.Get()
		source, err = tui.WatchRun(ctx, cfg.DataDir, planID)
		if err != nil {
			return err
		}
	}

	return tui.Run(tui.New(planID, source))
}
