package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fangio/fangio/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View Fangio configuration",
	Long: `View the active configuration after merging defaults, the config file,
and FANGIO_* environment variables.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/fangio/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()
	fmt.Printf("  data_dir:                  %s\n", cfg.DataDir)
	fmt.Printf("  approval_ttl_minutes:      %d\n", cfg.ApprovalTTLMinutes)
	fmt.Printf("  plan_rate_limit.max:       %d\n", cfg.PlanRateLimit.Max)
	fmt.Printf("  plan_rate_limit.window_ms: %d\n", cfg.PlanRateLimit.WindowMs)
	fmt.Printf("  tool.timeout_ms:           %d\n", cfg.Tool.TimeoutMs)
	fmt.Printf("  tool.max_buffer_bytes:     %d\n", cfg.Tool.MaxBufferBytes)
	fmt.Printf("  tool.allowed_paths:        %v\n", cfg.Tool.AllowedPaths)
	fmt.Printf("  server.port:               %d\n", cfg.Server.Port)
	fmt.Printf("  server.cors_origins:       %v\n", cfg.Server.CORSOrigins)
	fmt.Printf("  llm.base_url:              %s\n", cfg.LLM.BaseURL)
	fmt.Printf("  llm.model:                 %s\n", cfg.LLM.Model)
	if cfg.LLM.APIKey != "" {
		fmt.Printf("  llm.api_key:               (set)\n")
	} else {
		fmt.Printf("  llm.api_key:               (unset, demo mode)\n")
	}
	fmt.Printf("  logging.level:             %s\n", cfg.Logging.Level)
	return nil
}

const defaultConfigYAML = `# Fangio configuration. Any key can be overridden with a FANGIO_* environment
# variable, dots replaced by underscores (e.g. FANGIO_TOOL_TIMEOUT_MS).

data_dir: ./.fangio

# 0 disables approval expiry
approval_ttl_minutes: 0

plan_rate_limit:
  max: 30
  window_ms: 60000

tool:
  timeout_ms: 15000
  max_buffer_bytes: 1048576
  # filesystem roots filesystem.search may enter; empty means cwd only
  allowed_paths: []

server:
  port: 3001
  # allowed CORS origins; empty enables localhost dev origins only
  cors_origins: []

llm:
  # leave api_key empty for demo mode with canned plans
  api_key: ""
  base_url: https://models.github.ai/inference
  model: openai/gpt-4o-mini

logging:
  level: info
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
