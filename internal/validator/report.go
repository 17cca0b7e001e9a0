package validator

import (
	"fmt"
	"time"

	"github.com/kimeltech/mcp-chat/internal/utils/jsonfile"
)

// Summary counts how many entries reached each state
type Summary struct {
	Total      int `json:"total" yaml:"total"`
	Exists     int `json:"exists" yaml:"exists"`
	Callable   int `json:"callable" yaml:"callable"`
	Absent     int `json:"absent" yaml:"absent"`
	Uncallable int `json:"uncallable" yaml:"uncallable"`
}

// Report is persisted when at least one entry failed
type Report struct {
	Timestamp    string   `json:"timestamp" yaml:"timestamp"`
	RunID        string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	TotalTested  int      `json:"total_tested" yaml:"total_tested"`
	FailedModels []Result `json:"failed_models" yaml:"failed_models"`
	SuccessRate  string   `json:"success_rate" yaml:"success_rate"`
}

// Summarise counts results by state
func Summarise(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Exists {
			s.Exists++
		}
		switch r.Status {
		case StatusCallable:
			s.Callable++
		case StatusUncallable:
			s.Uncallable++
		case StatusAbsent:
			s.Absent++
		}
	}
	return s
}

// Failed returns the results that did not pass, in run order
func Failed(results []Result) []Result {
	failed := []Result{}
	for _, r := range results {
		if !r.Passed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// AllPassed reports whether every entry is callable. An empty run passes.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// Percent formats part/total with one decimal, e.g. "75.0%". An empty total is 100%.
func Percent(part, total int) string {
	if total == 0 {
		return "100.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

// BuildReport assembles the report for a run
func BuildReport(results []Result, now time.Time, runID string) *Report {
	summary := Summarise(results)
	return &Report{
		Timestamp:    now.UTC().Format(time.RFC3339),
		RunID:        runID,
		TotalTested:  summary.Total,
		FailedModels: Failed(results),
		SuccessRate:  Percent(summary.Callable, summary.Total),
	}
}

// WriteReport writes the report to path
func WriteReport(path string, report *Report) error {
	if err := jsonfile.Write(path, report); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	return nil
}
