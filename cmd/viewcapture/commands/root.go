package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/viewcapture/internal/api"
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "viewcapture",
		Short: "viewcapture - Capture editor views as PNG",
		Long: `viewcapture captures the scene view, the game view or the whole editor
window of a running game editor and returns it as a PNG scaled to fit
within requested bounds.

Features:
  • Resolve views to windows with title and class patterns
  • Native window capture that includes occluded content
  • Fallback to reading the focused window from the screen
  • Aspect-preserving bilinear downscaling
  • REST and WebSocket API for integration
  • Persistent configuration`,
		Version:           api.Version,
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/viewcapture/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8090)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "human-readable console logs instead of JSON")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("pretty"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// initLogging configures the global logger from the config file and flags
// before any command runs
func initLogging(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return nil
}

// loadConfig opens the config file and applies command line overrides
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	configMgr.Override(func(cfg *config.Config) {
		if port := viper.GetInt("server_port"); viper.IsSet("server_port") && port > 0 {
			cfg.ServerPort = port
		}
		if level := viper.GetString("log_level"); viper.IsSet("log_level") && level != "" {
			cfg.LogLevel = level
		}
		if viper.IsSet("log_pretty") && viper.GetBool("log_pretty") {
			cfg.LogPretty = true
		}
	})
	return configMgr, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
