package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PaulFidika/authmodule/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authmodule CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authmodule",
		Short: "Authentication and audit logging service",
		Long: `authmodule verifies user credentials, publishes a sign-in record for every
successful login and records operate logs for registered operations.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.Flags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, logrus.FieldLogger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
