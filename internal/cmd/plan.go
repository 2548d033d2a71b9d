package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fangio/fangio/internal/approval"
	"github.com/fangio/fangio/internal/config"
	"github.com/fangio/fangio/internal/event"
	"github.com/fangio/fangio/internal/logging"
	"github.com/fangio/fangio/internal/planner"
	"github.com/fangio/fangio/internal/schema"
	"github.com/fangio/fangio/internal/store"
)

var planCmd = &cobra.Command{
	Use:   "plan <goal>",
	Short: "Generate a plan for a goal",
	Long: `Generate a risk-classified tool plan for a natural-language goal using
the local planner, persist it under the data directory, and print it.
Low-risk steps are auto-approved; approve the rest with 'fangio approve'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	log := logging.New(nil, cfg.Logging.Level)
	goal := strings.Join(args, " ")

	pl := planner.New(planner.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	}, log)

	plan, err := pl.Generate(cmd.Context(), goal)
	if err != nil {
		return err
	}
	plan.Metadata = schema.NewMetadata("", "", "cli")
	approval.AutoApprove(plan, time.Now())

	st := store.New(cfg.DataDir, event.NewBus(), log)
	st.StorePlan(plan)
	st.EmitEvent(schema.AuditEvent{
		PlanID: plan.PlanID,
		Type:   schema.EventPlanCreated,
		Data: plan.ContextData(map[string]any{
			"goal":      plan.Goal,
			"stepCount": len(plan.Steps),
		}),
		Timestamp: schema.Timestamp(time.Now()),
	})

	return printJSON(plan)
}
