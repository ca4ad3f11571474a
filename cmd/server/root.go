package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yukikurage/intake-workflow-api/internal/config"
	"github.com/yukikurage/intake-workflow-api/internal/database"
	"github.com/yukikurage/intake-workflow-api/internal/logging"
)

const serviceName = "intake-workflow-api"

var (
	cfgFile  string
	logLevel string
	rootCmd  = &cobra.Command{
		Use:           "intake-server",
		Short:         "intake-server routes intake tasks between roles and notifies participants",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	if err := viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		return fmt.Errorf("bind log-level flag: %w", err)
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(policyCmd())
	rootCmd.AddCommand(outboxCmd())
	rootCmd.RunE = serveCmd().RunE
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// loadConfig reads configuration and initialises logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogLevel)
	return cfg, nil
}

// connect loads configuration and opens the database.
func connect() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
