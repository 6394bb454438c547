package expiration

import (
	"sort"
	"time"
)

// SkipReason explains why a candidate produced no notification.
type SkipReason string

// Skip reasons reported in RunSummary.Skips.
const (
	SkipNoClient        SkipReason = "no linked client"
	SkipNoEmail         SkipReason = "no contact email"
	SkipAlreadyNotified SkipReason = "already notified"
)

// ItemError is a per-candidate failure included in the run summary.
type ItemError struct {
	ServiceID string `json:"serviceId"`
	Error     string `json:"error"`
}

// Skip is a candidate that was intentionally not notified.
type Skip struct {
	ServiceID string     `json:"serviceId"`
	Reason    SkipReason `json:"reason"`
}

// RunSummary is the outcome of one expiration run.
// Found always equals Sent + Skipped + Failed. Errors may hold more entries
// than Failed: a reminder that was delivered but could not be logged counts
// as sent and is also reported as an error.
type RunSummary struct {
	StartedAt time.Time   `json:"started_at"`
	DryRun    bool        `json:"dry_run,omitempty"`
	Found     int         `json:"found"`
	Sent      int         `json:"sent"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
	Skips     []Skip      `json:"skips,omitempty"`
}

type outcomeKind int

const (
	outcomeSent outcomeKind = iota
	outcomeSkipped
	outcomeFailed
)

type outcome struct {
	serviceID string
	kind      outcomeKind
	reason    SkipReason
	err       error
}

func (s *RunSummary) add(o outcome) {
	switch o.kind {
	case outcomeSent:
		s.Sent++
	case outcomeSkipped:
		s.Skipped++
		s.Skips = append(s.Skips, Skip{ServiceID: o.serviceID, Reason: o.reason})
	case outcomeFailed:
		s.Failed++
	}
	if o.err != nil {
		s.Errors = append(s.Errors, ItemError{ServiceID: o.serviceID, Error: o.err.Error()})
	}
}

// sortItems orders errors and skips by service ID so concurrent runs
// produce stable output.
func (s *RunSummary) sortItems() {
	sort.SliceStable(s.Errors, func(i, j int) bool { return s.Errors[i].ServiceID < s.Errors[j].ServiceID })
	sort.SliceStable(s.Skips, func(i, j int) bool { return s.Skips[i].ServiceID < s.Skips[j].ServiceID })
}

// SkipCounts groups skipped candidates by reason.
func (s *RunSummary) SkipCounts() map[SkipReason]int {
	counts := make(map[SkipReason]int, len(s.Skips))
	for _, sk := range s.Skips {
		counts[sk.Reason]++
	}
	return counts
}

// Recorder receives the result of every run, e.g. to export metrics.
// summary is nil when err is non-nil.
type Recorder interface {
	ObserveRun(summary *RunSummary, err error, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(*RunSummary, error, time.Duration) {}
