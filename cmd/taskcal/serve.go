package main

import (
	"time"

	"github.com/spf13/cobra"

	appLog "taskcal/internal/log"
	"taskcal/internal/schedule"
	"taskcal/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the occurrence API over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		a.cfg.Listen = listen
	}

	appLog.Info("effective config",
		"listen", a.cfg.Listen,
		"database", a.cfg.Database,
		"log_level", a.cfg.LogLevel,
		"max_occurrences_per_item", a.cfg.MaxOccurrencesPerItem,
		"max_window_days", a.cfg.MaxWindowDays,
		"workers", a.cfg.Workers,
		"parse_cache_sweep", a.cfg.ParseCacheSweep,
		"basic_auth", a.cfg.BasicAuth != nil,
	)

	sched := schedule.New(time.UTC)
	ttl := time.Duration(a.cfg.ParseCacheTTLMinutes) * time.Minute
	if _, err := sched.ScheduleMemoSweep(a.cfg.ParseCacheSweep, ttl, a.svc); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	err = web.StartServer(cmd.Context(), a.cfg, a.svc, a.store)
	appLog.Info("taskcal exiting")
	return err
}
