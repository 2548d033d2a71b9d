package cmd

import (
	"strings"

	"github.com/fangio/fangio/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fangio",
	Short: "Approval-gated plan execution engine",
	Long: `Fangio turns natural-language operational goals into risk-classified
tool plans, gates risky steps behind explicit approval, executes approved
steps as bounded subprocesses, and records every run as a replayable
audit trail.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/fangio/config.yaml)")
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:3001", "base URL of a running fangio server")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/fangio")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FANGIO")
	// Replace dots with underscores for nested keys in env vars
	// e.g., FANGIO_TOOL_TIMEOUT_MS for tool.timeout_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// serverURL returns the target server for client commands.
func serverURL() string {
	if url := viper.GetString("server_url"); url != "" {
		return url
	}
	return "http://localhost:3001"
}
