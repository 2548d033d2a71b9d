package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fangio/fangio/internal/api"
	"github.com/fangio/fangio/internal/approval"
	"github.com/fangio/fangio/internal/config"
	"github.com/fangio/fangio/internal/engine"
	"github.com/fangio/fangio/internal/event"
	"github.com/fangio/fangio/internal/logging"
	"github.com/fangio/fangio/internal/planner"
	"github.com/fangio/fangio/internal/ratelimit"
	"github.com/fangio/fangio/internal/store"
	"github.com/fangio/fangio/internal/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Fangio API server",
	Long: `Start the HTTP API server: plan creation, step approval, execution,
live event streaming (SSE), and run replay. Plans and completed runs are
persisted under the configured data directory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port (overrides server.port)")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	log := logging.Setup(cfg.Logging.Level)

	bus := event.NewBus()
	st := store.New(cfg.DataDir, bus, log)
	gate := approval.NewGate(st, cfg.ApprovalTTL())

	runner := tool.NewRunner(cfg.Tool.Timeout(), cfg.Tool.MaxBufferBytes)
	tools := tool.NewCatalog(runner, cfg.Tool.AllowedPaths)
	eng := engine.New(st, tools, log)

	pl := planner.New(planner.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	}, log)

	limiter := ratelimit.New(cfg.PlanRateLimit.Max, cfg.PlanRateLimit.Window())

	srv := api.NewServer(st, gate, eng, pl, limiter, cfg.Server.CORSOrigins, log)

	log.Info("starting fangio",
		"data_dir", cfg.DataDir,
		"planner_mode", pl.Status().Mode,
		"approval_ttl_minutes", cfg.ApprovalTTLMinutes)
	return srv.Listen(cfg.Server.Port)
}
