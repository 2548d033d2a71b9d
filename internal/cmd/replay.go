package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fangio/fangio/internal/config"
	"github.com/fangio/fangio/internal/event"
	"github.com/fangio/fangio/internal/schema"
	"github.com/fangio/fangio/internal/store"
)

var replayCmd = &cobra.Command{
	Use:   "replay <planId>",
	Short: "Print the recorded event log of a run",
	Long: `Print a plan's audit events, byte-for-byte as they were emitted. Asks a
running server first and falls back to reading the persisted run from the
data directory, so replay works with no server up.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	planID := args[0]

	var resp struct {
		Events []schema.AuditEvent `json:"events"`
	}
	client := newAPIClient(serverURL())
	if err := client.get("/api/replay?planId="+planID, &resp); err == nil {
		return printJSON(resp.Events)
	}

	cfg := config.Get()
	st := store.New(cfg.DataDir, event.NewBus(), nil)
	events, err := st.LoadRun(planID)
	if err != nil {
		return err
	}
	return printJSON(events)
}
