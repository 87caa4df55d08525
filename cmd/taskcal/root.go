package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskcal/internal/calendar"
	"taskcal/internal/config"
	appLog "taskcal/internal/log"
	"taskcal/internal/store"
)

const defaultConfigPath = "/etc/taskcal/config.yaml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskcal",
		Short:         "Recurring occurrence engine for tasks and lists",
		Long:          "taskcal turns dates and recurrence phrases in task text into calendar occurrences, tracks their completion and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", defaultConfigPath, "path to config file")
	root.PersistentFlags().String("database", "", "SQLite database path (overrides config if set)")
	root.PersistentFlags().String("user", os.Getenv("TASKCAL_USER"), "user id to act as (default $TASKCAL_USER)")

	root.AddCommand(
		newServeCmd(),
		newOccurrencesCmd(),
		newCompletionCmd(true),
		newCompletionCmd(false),
		newItemCmd(),
		newIgnoreCmd(),
	)
	return root
}

// app bundles what every subcommand needs.
type app struct {
	cfg   *config.Config
	store *store.Store
	svc   *calendar.Service
}

func openApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if db, _ := cmd.Flags().GetString("database"); db != "" {
		cfg.Database = db
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	svc := calendar.New(st, st, st, calendar.Options{
		MaxOccurrencesPerItem: cfg.MaxOccurrencesPerItem,
		MaxWindowDays:         cfg.MaxWindowDays,
		Workers:               cfg.Workers,
	})
	return &app{cfg: cfg, store: st, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		appLog.Error("close database failed", err)
	}
}

func requireUser(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required (or set TASKCAL_USER)")
	}
	return user, nil
}
