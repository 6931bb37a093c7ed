package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"evacsim/internal/metrics"
	"evacsim/internal/server"
	"evacsim/internal/sim"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and stream it over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("tick") {
				cfg.Server.TickInterval, _ = cmd.Flags().GetDuration("tick")
			}
			if cmd.Flags().Changed("pace") {
				cfg.Server.Pace, _ = cmd.Flags().GetInt("pace")
			}
			if cmd.Flags().Changed("static") {
				cfg.Server.StaticDir, _ = cmd.Flags().GetString("static")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := newLogger(cmd, cfg)
			simulation, err := sim.New(cfg.Scenario.Params(), cfg.Scenario.Seed)
			if err != nil {
				return err
			}
			simulation.SetLogger(log)

			collector, err := metrics.NewCollector(nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg.Server, simulation, collector, log).ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("addr", ":8080", "Server listen address")
	cmd.Flags().Duration("tick", 0, "Wall time between tick batches (default from config)")
	cmd.Flags().Int("pace", 1, "Ticks applied per interval")
	cmd.Flags().String("static", "", "Directory served at / for a browser client")
	return cmd
}
