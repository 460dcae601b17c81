// Package mcp exposes job health over the Model Context Protocol.
package mcp

import "time"

// HealthResponse is the job_health tool response.
type HealthResponse struct {
	Target      string       `json:"target"`
	Generation  uint64       `json:"generation"`
	GeneratedAt time.Time    `json:"generated_at"`
	TotalBuilds int          `json:"total_builds"`
	Summary     SummaryInfo  `json:"summary"`
	Jobs        []JobSummary `json:"jobs"`
	// Omitted counts jobs left out by the limit.
	Omitted int `json:"omitted,omitempty"`
}

// SummaryInfo counts jobs by last state.
type SummaryInfo struct {
	FailingRequired int `json:"failing_required"`
	FailingOptional int `json:"failing_optional"`
	Running         int `json:"running"`
	Passing         int `json:"passing"`
	Other           int `json:"other"`
}

// JobSummary is a compact view of one job. Use job_history for the full
// per-build history.
type JobSummary struct {
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	LastState string     `json:"last_state"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	Frequency int        `json:"frequency"`
	Optional  bool       `json:"optional,omitempty"`
	// RecentStates lists the newest states first, one per build.
	RecentStates []string `json:"recent_states"`
	// LastFailureURL links the newest failed build, if any.
	LastFailureURL string `json:"last_failure_url,omitempty"`
}

// BuildInfo is the get_build tool response.
type BuildInfo struct {
	Number     int        `json:"number"`
	State      string     `json:"state"`
	Branch     string     `json:"branch"`
	Commit     string     `json:"commit"`
	Message    string     `json:"message,omitempty"`
	URL        string     `json:"url"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	FailedJobs []string   `json:"failed_jobs"`
	Jobs       []JobInfo  `json:"jobs"`
}

// JobInfo is one script job of a build.
type JobInfo struct {
	Name       string `json:"name"`
	StepKey    string `json:"step_key,omitempty"`
	State      string `json:"state"`
	Optional   bool   `json:"optional,omitempty"`
	SoftFailed bool   `json:"soft_failed,omitempty"`
	ExitStatus *int   `json:"exit_status,omitempty"`
	URL        string `json:"url,omitempty"`
}
