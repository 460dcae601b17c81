// Package ranking orders job health aggregates for display.
// The CLI, the MCP tools and published snapshots all consume this
// ordering so that every surface lists jobs the same way.
package ranking

import (
	"sort"

	"jobhealth/src/contracts"
	"jobhealth/src/provider"
)

// statePriority is the failure-priority class of each listed state.
// Lower sorts first.
var statePriority = map[provider.JobState]int{
	provider.JobFailed:   0,
	provider.JobRunning:  1,
	provider.JobPassed:   2,
	provider.JobSkipped:  3,
	provider.JobCanceled: 4,
}

// UnlistedPriority is the class of every state not in the priority table.
const UnlistedPriority = 5

// Priority returns the failure-priority class of a state.
func Priority(state provider.JobState) int {
	if p, ok := statePriority[state]; ok {
		return p
	}
	return UnlistedPriority
}

// Rank returns the jobs ordered by failure priority, then by descending
// frequency. Equal keys keep their input order. The input is not modified.
func Rank(jobs []contracts.JobHealth) []contracts.JobHealth {
	if len(jobs) == 0 {
		return []contracts.JobHealth{}
	}

	sorted := make([]contracts.JobHealth, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := Priority(sorted[i].LastState), Priority(sorted[j].LastState)
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Frequency > sorted[j].Frequency
	})
	return sorted
}

// Filter returns the jobs for which keep is true, preserving order.
func Filter(jobs []contracts.JobHealth, keep func(contracts.JobHealth) bool) []contracts.JobHealth {
	out := make([]contracts.JobHealth, 0, len(jobs))
	for _, job := range jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	return out
}

// FailingRequired keeps jobs whose last state is failed and that are not optional.
func FailingRequired(job contracts.JobHealth) bool {
	return job.LastState == provider.JobFailed && !job.Optional
}
