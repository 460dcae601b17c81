package mcp

import (
	"jobhealth/src/contracts"
	"jobhealth/src/patterns"
	"jobhealth/src/provider"
	"jobhealth/src/ranking"
)

const (
	// DefaultJobLimit bounds the jobs returned by job_health.
	DefaultJobLimit = 40

	// RecentStatesLimit bounds RecentStates per job.
	RecentStatesLimit = 10
)

// ToHealthResponse shapes a snapshot for an LLM: ranked jobs, compact
// history, at most limit jobs. limit <= 0 means no limit.
func ToHealthResponse(snap *contracts.DashboardSnapshot, failingOnly bool, limit int) HealthResponse {
	jobs := snap.Jobs
	if failingOnly {
		jobs = ranking.Filter(jobs, ranking.FailingRequired)
	}

	omitted := 0
	if limit > 0 && len(jobs) > limit {
		omitted = len(jobs) - limit
		jobs = jobs[:limit]
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, summarizeJob(job))
	}

	return HealthResponse{
		Target:      snap.Target.String(),
		Generation:  snap.Generation,
		GeneratedAt: snap.GeneratedAt,
		TotalBuilds: snap.TotalBuilds,
		Summary: SummaryInfo{
			FailingRequired: snap.Summary.FailingRequired,
			FailingOptional: snap.Summary.FailingOptional,
			Running:         snap.Summary.Running,
			Passing:         snap.Summary.Passing,
			Other:           snap.Summary.Other,
		},
		Jobs:    summaries,
		Omitted: omitted,
	}
}

func summarizeJob(job contracts.JobHealth) JobSummary {
	s := JobSummary{
		Key:          job.Key,
		Name:         job.Name,
		LastState:    string(job.LastState),
		LastRun:      job.LastRun,
		Frequency:    job.Frequency,
		Optional:     job.Optional,
		RecentStates: make([]string, 0, min(len(job.Builds), RecentStatesLimit)),
	}

	for i, entry := range job.Builds {
		if i < RecentStatesLimit {
			s.RecentStates = append(s.RecentStates, string(entry.State))
		}
		if s.LastFailureURL == "" && entry.State == provider.JobFailed {
			s.LastFailureURL = entry.BuildURL
		}
	}
	return s
}

// ToBuildInfo converts a build, keeping only script jobs.
func ToBuildInfo(build *provider.Build) BuildInfo {
	info := BuildInfo{
		Number:     build.Number,
		State:      string(build.State),
		Branch:     build.Branch,
		Commit:     build.Commit,
		Message:    build.Message,
		URL:        build.WebURL,
		CreatedAt:  build.CreatedAt,
		FinishedAt: build.FinishedAt,
		FailedJobs: []string{},
		Jobs:       []JobInfo{},
	}

	for _, job := range build.Jobs {
		if !job.IsScript() {
			continue
		}
		optional := patterns.IsOptional(job)
		info.Jobs = append(info.Jobs, JobInfo{
			Name:       job.Name,
			StepKey:    job.StepKey,
			State:      string(job.State),
			Optional:   optional,
			SoftFailed: job.SoftFailed,
			ExitStatus: job.ExitStatus,
			URL:        job.WebURL,
		})
		if job.State == provider.JobFailed && !optional {
			info.FailedJobs = append(info.FailedJobs, job.Name)
		}
	}
	return info
}
