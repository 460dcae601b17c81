// Package patterns holds the rule tables used to classify CI jobs by name.
//
// Optional jobs are jobs whose failure does not block overall build health.
// A job is optional when it is soft-fail or when its name or step key
// contains one of the markers below, case-insensitively and anywhere in
// the string.
package patterns

import (
	"regexp"
	"strings"

	"jobhealth/src/provider"
)

// MatchSoftFail is reported by MatchOptional when the soft-fail flag decided.
const MatchSoftFail = "soft_fail"

// optionalPatterns are matched against lower-cased names and step keys.
var optionalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`optional`),
	regexp.MustCompile(`allow.?fail`),
	regexp.MustCompile(`non.?blocking`),
	regexp.MustCompile(`\(optional\)`),
	regexp.MustCompile(`\[optional\]`),

	// Advisory categories
	regexp.MustCompile(`experimental`),
	regexp.MustCompile(`beta`),
	regexp.MustCompile(`benchmark`),
	regexp.MustCompile(`perf`),
}

// OptionalPatterns returns the pattern sources in evaluation order.
func OptionalPatterns() []string {
	out := make([]string, len(optionalPatterns))
	for i, p := range optionalPatterns {
		out[i] = p.String()
	}
	return out
}

// IsOptional reports whether a job is non-blocking.
func IsOptional(job provider.Job) bool {
	return MatchOptional(job) != ""
}

// MatchOptional returns the rule that makes a job optional, or "" if none does.
func MatchOptional(job provider.Job) string {
	if job.SoftFailed {
		return MatchSoftFail
	}

	name := strings.ToLower(job.Name)
	stepKey := strings.ToLower(job.StepKey)

	for _, p := range optionalPatterns {
		if p.MatchString(name) || (stepKey != "" && p.MatchString(stepKey)) {
			return p.String()
		}
	}
	return ""
}
