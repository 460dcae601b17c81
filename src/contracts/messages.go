// Package contracts defines the job health model shared by the pipeline,
// the store, the broker and the MCP tools.
package contracts

import (
	"fmt"
	"time"

	"jobhealth/src/provider"
)

// BuildHistoryEntry is one observation of a job in a specific build.
type BuildHistoryEntry struct {
	BuildNumber int               `json:"build_number"`
	Commit      string            `json:"commit"` // first 7 characters
	State       provider.JobState `json:"state"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	BuildURL    string            `json:"build_url"`
}

// Duration returns how long the job ran, or false if it has not both
// started and finished.
func (e BuildHistoryEntry) Duration() (time.Duration, bool) {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0, false
	}
	return e.FinishedAt.Sub(*e.StartedAt), true
}

// JobHealth aggregates every observation of one job identity.
type JobHealth struct {
	// Identity the observations were grouped by (step key, name or ID).
	Key string `json:"key"`
	// Display name from the most recent observation.
	Name    string `json:"name"`
	StepKey string `json:"step_key,omitempty"`
	// State of the observation with the latest creation time.
	LastState provider.JobState `json:"last_state"`
	LastRun   *time.Time        `json:"last_run,omitempty"`
	// Number of observations, independent of history truncation.
	Frequency int  `json:"frequency"`
	Optional  bool `json:"optional"`
	// Most recent observations, descending by build number.
	Builds []BuildHistoryEntry `json:"builds"`
}

// Target names the pipeline branch a snapshot describes.
type Target struct {
	Org      string `json:"org"`
	Pipeline string `json:"pipeline"`
	Branch   string `json:"branch"`
}

// String returns "org/pipeline@branch".
func (t Target) String() string {
	return fmt.Sprintf("%s/%s@%s", t.Org, t.Pipeline, t.Branch)
}

// DashboardSnapshot is one immutable, ranked result of a refresh.
// Snapshots are replaced wholesale, never patched.
type DashboardSnapshot struct {
	Target      Target      `json:"target"`
	Generation  uint64      `json:"generation"`
	GeneratedAt time.Time   `json:"generated_at"`
	Jobs        []JobHealth `json:"jobs"`
	TotalBuilds int         `json:"total_builds"`
	Summary     Summary     `json:"summary"`
}

// Summary counts jobs by their last observed state.
type Summary struct {
	FailingRequired int `json:"failing_required"`
	FailingOptional int `json:"failing_optional"`
	Running         int `json:"running"`
	Passing         int `json:"passing"`
	Other           int `json:"other"`
}

// Job returns the aggregate with the given key.
func (s *DashboardSnapshot) Job(key string) (JobHealth, bool) {
	for _, job := range s.Jobs {
		if job.Key == key {
			return job, true
		}
	}
	return JobHealth{}, false
}

// Topic names used when publishing snapshots
const (
	// TopicSnapshots carries JSON-encoded DashboardSnapshot values.
	// Key: Target.String()
	TopicSnapshots = "jobhealth.snapshots"
)
