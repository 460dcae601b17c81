// Package health folds fetched builds into per-job health aggregates.
package health

import (
	"sort"
	"time"

	"jobhealth/src/contracts"
	"jobhealth/src/patterns"
	"jobhealth/src/provider"
)

const (
	// HistoryLimit caps the recent-build history kept per job.
	HistoryLimit = 50

	// ShortCommitLength is the length commits are truncated to in history.
	ShortCommitLength = 7
)

// Accumulator collects job observations across builds.
// It is owned by a single aggregation pass and is not safe for concurrent use.
type Accumulator struct {
	index map[string]int // identity -> position in jobs
	jobs  []*jobState
}

type jobState struct {
	health     contracts.JobHealth
	lastRun    time.Time
	hasLastRun bool
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		index: make(map[string]int),
	}
}

// AddBuild records every script job of a build.
// Builds without script jobs contribute nothing.
func (a *Accumulator) AddBuild(build provider.Build) {
	for _, job := range build.Jobs {
		if !job.IsScript() {
			continue
		}
		a.addJob(build, job)
	}
}

func (a *Accumulator) addJob(build provider.Build, job provider.Job) {
	key := job.Identity()
	optional := patterns.IsOptional(job)

	pos, ok := a.index[key]
	if !ok {
		pos = len(a.jobs)
		a.index[key] = pos
		a.jobs = append(a.jobs, &jobState{
			health: contracts.JobHealth{
				Key:       key,
				Name:      job.Name,
				StepKey:   job.StepKey,
				LastState: job.State,
				Optional:  optional,
			},
		})
	}
	js := a.jobs[pos]

	js.health.Frequency++

	// Ties keep the earlier observation.
	if !js.hasLastRun || job.CreatedAt.After(js.lastRun) {
		js.lastRun = job.CreatedAt
		js.hasLastRun = true
		js.health.LastState = job.State
		js.health.Name = job.Name
	}

	if optional {
		js.health.Optional = true
	}

	js.health.Builds = append(js.health.Builds, contracts.BuildHistoryEntry{
		BuildNumber: build.Number,
		Commit:      shortCommit(build.Commit),
		State:       job.State,
		StartedAt:   copyTime(job.StartedAt),
		FinishedAt:  copyTime(job.FinishedAt),
		BuildURL:    build.WebURL,
	})
}

// Len returns the number of distinct job identities seen so far.
func (a *Accumulator) Len() int {
	return len(a.jobs)
}

// Freeze returns the aggregates in first-seen order with each history sorted
// by descending build number and capped at HistoryLimit. The accumulator
// should not be used afterwards.
func (a *Accumulator) Freeze() []contracts.JobHealth {
	out := make([]contracts.JobHealth, 0, len(a.jobs))
	for _, js := range a.jobs {
		h := js.health
		if js.hasLastRun {
			lastRun := js.lastRun
			h.LastRun = &lastRun
		}

		builds := make([]contracts.BuildHistoryEntry, len(h.Builds))
		copy(builds, h.Builds)
		sort.SliceStable(builds, func(i, j int) bool {
			return builds[i].BuildNumber > builds[j].BuildNumber
		})
		if len(builds) > HistoryLimit {
			builds = builds[:HistoryLimit]
		}
		h.Builds = builds

		out = append(out, h)
	}
	return out
}

// Aggregate folds builds into per-job aggregates, in first-seen order.
func Aggregate(builds []provider.Build) []contracts.JobHealth {
	acc := NewAccumulator()
	for _, build := range builds {
		acc.AddBuild(build)
	}
	return acc.Freeze()
}

// Summarize counts jobs by last observed state.
func Summarize(jobs []contracts.JobHealth) contracts.Summary {
	var s contracts.Summary
	for _, job := range jobs {
		switch job.LastState {
		case provider.JobFailed:
			if job.Optional {
				s.FailingOptional++
			} else {
				s.FailingRequired++
			}
		case provider.JobRunning:
			s.Running++
		case provider.JobPassed:
			s.Passing++
		default:
			s.Other++
		}
	}
	return s
}

func shortCommit(commit string) string {
	if len(commit) > ShortCommitLength {
		return commit[:ShortCommitLength]
	}
	return commit
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
