package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

// newStatusCommand reports daemon and queue health. When no daemon is
// reachable it falls back to queue counts read straight from the store.
func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd, ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			if status.Running {
				fmt.Fprintln(out, "Daemon: running")
			} else {
				fmt.Fprintln(out, "Daemon: not running")
			}
			fmt.Fprintf(out, "Queue: %d total, %d pending, %d processing, %d completed, %d failed, %d review\n",
				status.Queue.Total, status.Queue.Pending, status.Queue.Processing,
				status.Queue.Completed, status.Queue.Failed, status.Queue.Review)

			if len(status.Checks) > 0 {
				rows := make([][]string, 0, len(status.Checks))
				for _, check := range status.Checks {
					state := "ready"
					if !check.Ready {
						state = "not ready"
					}
					rows = append(rows, []string{check.Name, state, check.Detail})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Check", "State", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status as JSON")
	return cmd
}

func fetchStatus(cmd *cobra.Command, ctx *commandContext) (api.StatusResponse, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return api.StatusResponse{}, err
	}
	if client != nil {
		status, apiErr := client.Status(cmd.Context())
		if apiErr == nil {
			return status, nil
		}
		if !errors.Is(apiErr, api.ErrUnavailable) {
			return api.StatusResponse{}, apiErr
		}
	}

	store, err := ctx.openStore()
	if err != nil {
		return api.StatusResponse{}, err
	}
	defer store.Close()
	counts, err := api.NewQueueService(store).Counts(cmd.Context())
	if err != nil {
		return api.StatusResponse{}, err
	}
	return api.StatusResponse{Running: false, Queue: counts}, nil
}
