package provider

import "time"

// BuildState is the lifecycle state of a build.
type BuildState string

const (
	BuildRunning   BuildState = "running"
	BuildScheduled BuildState = "scheduled"
	BuildPassed    BuildState = "passed"
	BuildFailed    BuildState = "failed"
	BuildBlocked   BuildState = "blocked"
	BuildCanceled  BuildState = "canceled"
	BuildCanceling BuildState = "canceling"
	BuildSkipped   BuildState = "skipped"
	BuildNotRun    BuildState = "not_run"
)

// JobState is the lifecycle state of a job. It is richer than BuildState.
type JobState string

const (
	JobWaiting   JobState = "waiting"
	JobBlocked   JobState = "blocked"
	JobUnblocked JobState = "unblocked"
	JobRunning   JobState = "running"
	JobPassed    JobState = "passed"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
	JobSkipped   JobState = "skipped"
	JobBroken    JobState = "broken"
	JobTimingOut JobState = "timing_out"
	JobTimedOut  JobState = "timed_out"
)

// JobType is the kind of step a job was created from.
type JobType string

const (
	// JobTypeScript is the only kind that runs a command and
	// therefore the only kind that carries health signal.
	JobTypeScript  JobType = "script"
	JobTypeWaiter  JobType = "waiter"
	JobTypeManual  JobType = "manual"
	JobTypeTrigger JobType = "trigger"
)

// ListableBuildStates are the build states requested when listing recent builds.
// Scheduled and other not-yet-started builds are left out.
var ListableBuildStates = []BuildState{
	BuildRunning,
	BuildPassed,
	BuildFailed,
	BuildBlocked,
	BuildCanceled,
}

// Build represents a CI build with jobs
type Build struct {
	ID         string
	Number     int
	State      BuildState
	Commit     string
	Branch     string
	Message    string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	WebURL     string
	Jobs       []Job
}

// HasScriptJobs reports whether any job in the build is an executable script job.
func (b Build) HasScriptJobs() bool {
	for _, job := range b.Jobs {
		if job.IsScript() {
			return true
		}
	}
	return false
}

// Job represents a single job within a build
type Job struct {
	ID         string
	Type       JobType
	Name       string
	StepKey    string
	State      JobState
	SoftFailed bool
	ExitStatus *int
	Retried    bool
	WebURL     string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// IsScript reports whether the job is of the executable script kind.
func (j Job) IsScript() bool {
	return j.Type == JobTypeScript
}

// Identity returns the key used to correlate the same job across builds:
// the step key if present, else the name, else the raw ID.
func (j Job) Identity() string {
	if j.StepKey != "" {
		return j.StepKey
	}
	if j.Name != "" {
		return j.Name
	}
	return j.ID
}

// BuildQuery selects one page of builds for a pipeline.
type BuildQuery struct {
	Org      string
	Pipeline string
	Branch   string
	Page     int
	PerPage  int
	States   []BuildState
}

// BuildRef identifies a single build in a CI system
type BuildRef struct {
	Provider string // "buildkite"
	Org      string
	Pipeline string
	Number   int
}
