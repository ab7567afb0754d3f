package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScripting  Status = "scripting"
	StatusScripted   Status = "scripted"
	StatusGathering  Status = "gathering"
	StatusGathered   Status = "gathered"
	StatusRendering  Status = "rendering"
	StatusRendered   Status = "rendered"
	StatusOrganizing Status = "organizing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusReview     Status = "review"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusScripting,
	StatusScripted,
	StatusGathering,
	StatusGathered,
	StatusRendering,
	StatusRendered,
	StatusOrganizing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusScripting:  {},
	StatusGathering:  {},
	StatusRendering:  {},
	StatusOrganizing: {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions return in-flight jobs to the state preceding the
// stage that was interrupted, so a restarted daemon re-runs that stage.
var stageRollbackTransitions = []statusTransition{
	{from: StatusScripting, to: StatusPending},
	{from: StatusGathering, to: StatusScripted},
	{from: StatusRendering, to: StatusGathered},
	{from: StatusOrganizing, to: StatusRendered},
}

// IsProcessing reports whether the status marks a stage in flight.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether the job has finished, successfully or not.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusReview
}

// ParseStatus validates a user-supplied status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Job represents a generation request persisted in SQLite.
type Job struct {
	ID     int64
	RunID  string
	Prompt string
	Status Status

	// ScriptJSON holds the generated narration and scene list.
	ScriptJSON string
	// AssetDir holds downloaded images and the raw narration audio.
	AssetDir string
	// OutputFile is the rendered container in staging.
	OutputFile string
	// FinalFile is the delivered path under the library directory.
	FinalFile string

	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string

	ErrorMessage string
	ReviewReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}
