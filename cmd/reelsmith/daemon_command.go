package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelsmith/internal/daemon"
	"reelsmith/internal/logging"
	"reelsmith/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon management",
	}
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the generation daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}

			manager, err := workflow.NewManager(cfg, store, logger)
			if err != nil {
				store.Close()
				return fmt.Errorf("build workflow: %w", err)
			}
			d, err := daemon.New(cfg, store, logger, manager)
			if err != nil {
				store.Close()
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := d.Start(signalCtx); err != nil {
				_ = d.Close()
				return err
			}
			if addr := d.APIAddr(); addr != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "API listening on %s\n", addr)
			}

			<-signalCtx.Done()
			return d.Close()
		},
	}
}
