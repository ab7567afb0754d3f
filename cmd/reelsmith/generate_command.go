package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/queue"
)

// newGenerateCommand enqueues a prompt. It prefers the daemon API so a
// running daemon acknowledges the enqueue, and falls back to writing the
// queue directly when no daemon is reachable.
func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Queue a video generation request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("prompt is required")
			}

			view, err := enqueue(cmd, ctx, prompt)
			if err != nil {
				return err
			}
			if !wait {
				if asJSON {
					return writeJSON(cmd, view)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d (%s)\n", view.ID, view.RunID)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d (%s), waiting for completion\n", view.ID, view.RunID)
			final, err := waitForJob(cmd, ctx, view.ID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, final)
			}
			switch queue.Status(final.Status) {
			case queue.StatusCompleted:
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d completed: %s\n", final.ID, final.FinalFile)
				return nil
			case queue.StatusReview:
				return fmt.Errorf("job %d needs review: %s", final.ID, final.ReviewReason)
			default:
				return fmt.Errorf("job %d failed: %s", final.ID, final.ErrorMessage)
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the created job as JSON")
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the job reaches a terminal status")
	return cmd
}

// waitForJob polls until the job completes, fails, or lands in review.
// Polling goes through the daemon API when one is reachable and reads
// the store directly otherwise, same as enqueue.
func waitForJob(cmd *cobra.Command, ctx *commandContext, id int64) (api.JobView, error) {
	const pollInterval = 2 * time.Second

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		view, err := describeJob(cmd, ctx, id)
		if err != nil {
			return api.JobView{}, err
		}
		if status, ok := queue.ParseStatus(view.Status); ok && status.IsTerminal() {
			return view, nil
		}

		select {
		case <-cmd.Context().Done():
			return api.JobView{}, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func describeJob(cmd *cobra.Command, ctx *commandContext, id int64) (api.JobView, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return api.JobView{}, err
	}
	if client != nil {
		view, apiErr := client.Describe(cmd.Context(), id)
		if apiErr == nil {
			return view, nil
		}
		if !errors.Is(apiErr, api.ErrUnavailable) {
			return api.JobView{}, apiErr
		}
	}

	store, err := ctx.openStore()
	if err != nil {
		return api.JobView{}, err
	}
	defer store.Close()
	return api.NewQueueService(store).Describe(cmd.Context(), id)
}

func enqueue(cmd *cobra.Command, ctx *commandContext, prompt string) (api.JobView, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return api.JobView{}, err
	}
	if client != nil {
		view, apiErr := client.Generate(cmd.Context(), prompt)
		if apiErr == nil {
			return view, nil
		}
		if !errors.Is(apiErr, api.ErrUnavailable) {
			return api.JobView{}, apiErr
		}
	}

	store, err := ctx.openStore()
	if err != nil {
		return api.JobView{}, err
	}
	defer store.Close()
	return api.NewQueueService(store).Enqueue(cmd.Context(), prompt)
}
