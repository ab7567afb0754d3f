package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the generation queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func withQueueService(ctx *commandContext, fn func(*api.QueueService) error) error {
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(api.NewQueueService(store))
}

func parseStatusFilters(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize jobs per lifecycle bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueueService(ctx, func(svc *api.QueueService) error {
				counts, err := svc.Counts(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, counts)
				}
				rows := [][]string{
					{"Pending", strconv.Itoa(counts.Pending)},
					{"Processing", strconv.Itoa(counts.Processing)},
					{"Completed", strconv.Itoa(counts.Completed)},
					{"Failed", strconv.Itoa(counts.Failed)},
					{"Review", strconv.Itoa(counts.Review)},
					{"Total", strconv.Itoa(counts.Total)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Bucket", "Jobs"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit counts as JSON")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(statusFilters)
			if err != nil {
				return err
			}
			return withQueueService(ctx, func(svc *api.QueueService) error {
				jobs, err := svc.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Status,
						truncate(job.Prompt, 48),
						formatProgress(job),
						job.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Prompt", "Progress", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit jobs as JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return withQueueService(ctx, func(svc *api.QueueService) error {
				job, err := svc.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %d (%s)\n", job.ID, job.RunID)
				fmt.Fprintf(out, "  Prompt:   %s\n", job.Prompt)
				fmt.Fprintf(out, "  Status:   %s\n", job.Status)
				if job.ProgressStage != "" {
					fmt.Fprintf(out, "  Progress: %s\n", formatProgress(job))
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:    %s\n", job.ErrorMessage)
				}
				if job.ReviewReason != "" {
					fmt.Fprintf(out, "  Review:   %s\n", job.ReviewReason)
				}
				if job.FinalFile != "" {
					fmt.Fprintf(out, "  Output:   %s\n", job.FinalFile)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job as JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Reset a failed or review job back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return withQueueService(ctx, func(svc *api.QueueService) error {
				job, err := svc.Retry(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d reset to %s\n", job.ID, job.Status)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var failed, completed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			switch {
			case failed && completed:
				statuses = []queue.Status{queue.StatusFailed, queue.StatusReview, queue.StatusCompleted}
			case failed:
				statuses = []queue.Status{queue.StatusFailed, queue.StatusReview}
			case completed:
				statuses = []queue.Status{queue.StatusCompleted}
			}
			return withQueueService(ctx, func(svc *api.QueueService) error {
				removed, err := svc.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "Only remove failed and review jobs")
	cmd.Flags().BoolVar(&completed, "completed", false, "Only remove completed jobs")
	return cmd
}

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}

func formatProgress(job api.JobView) string {
	if job.ProgressStage == "" {
		return ""
	}
	label := fmt.Sprintf("%s %.0f%%", job.ProgressStage, job.ProgressPercent)
	if job.ProgressMessage != "" {
		label += " " + job.ProgressMessage
	}
	return label
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
