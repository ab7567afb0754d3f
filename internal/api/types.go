package api

import "time"

// JobView is the JSON representation of a queue job.
type JobView struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id"`
	Prompt          string    `json:"prompt"`
	Status          string    `json:"status"`
	ProgressStage   string    `json:"progress_stage,omitempty"`
	ProgressPercent float64   `json:"progress_percent"`
	ProgressMessage string    `json:"progress_message,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ReviewReason    string    `json:"review_reason,omitempty"`
	FinalFile       string    `json:"final_file,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// QueueListResponse wraps a queue listing.
type QueueListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// QueueItemResponse wraps a single job lookup.
type QueueItemResponse struct {
	Job JobView `json:"job"`
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse reports the enqueued job.
type GenerateResponse struct {
	Job JobView `json:"job"`
}

// HealthView is one readiness check in the status payload.
type HealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// QueueCounts summarizes jobs per lifecycle bucket.
type QueueCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
}

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Running bool         `json:"running"`
	Queue   QueueCounts  `json:"queue"`
	Checks  []HealthView `json:"checks"`
}
