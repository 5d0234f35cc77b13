package model

// CheckStatus grades the outcome of a single environment check.
type CheckStatus string

const (
	// CheckStatusOK means the checked tool or setting is usable.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning means generation works but with reduced capability.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError means generation cannot work until this is fixed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult is the outcome of one environment check, such as probing for
// the edge-tts command or an ffmpeg build with the required filters.
type CheckResult struct {
	// ID names the check, e.g. "ffmpeg_available".
	ID string
	// Status grades the outcome.
	Status CheckStatus
	// Message explains the outcome in one line.
	Message string
}

// CheckSummary tallies check results by status.
type CheckSummary struct {
	OK       int
	Warnings int
	Errors   int
}

// SummarizeChecks aggregates results for reporting.
func SummarizeChecks(results []CheckResult) CheckSummary {
	var s CheckSummary
	for _, r := range results {
		switch r.Status {
		case CheckStatusOK:
			s.OK++
		case CheckStatusWarning:
			s.Warnings++
		case CheckStatusError:
			s.Errors++
		}
	}
	return s
}
