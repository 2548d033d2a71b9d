package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve <planId> <stepId> [stepId...]",
	Short: "Approve plan steps on a running server",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL())

	body := map[string]any{"planId": args[0], "stepIds": args[1:]}
	if err := client.post("/api/approve", body, nil); err != nil {
		return err
	}

	fmt.Printf("Approved %d step(s) on %s\n", len(args)-1, args[0])
	return nil
}
