package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute <planId>",
	Short: "Execute a fully approved plan on a running server",
	Long: `Trigger execution of a plan on a running server. The server rejects the
request if any step is unapproved or an approval has expired; otherwise the
run proceeds in the background. Follow it with 'fangio watch'.`,
	Args: cobra.ExactArgs(1),
	RunE: runExecute,
}

func init() {
	rootCmd.AddCommand(executeCmd)
}

func runExecute(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL())

	if err := client.post("/api/execute", map[string]any{"planId": args[0]}, nil); err != nil {
		return err
	}

	fmt.Printf("Execution started for %s\n", args[0])
	fmt.Printf("Follow it with: fangio watch %s\n", args[0])
	return nil
}
