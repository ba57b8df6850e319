package scheduler

import (
	"errors"
	"sort"
	"time"

	"github.com/specialistvlad/burstgraph/internal/stats"
)

// Result summarizes one compute run.
type Result struct {
	RunID  string
	Target string
	Mode   Mode

	// Succeeded lists nodes executed successfully in this run.
	Succeeded []string
	// Failed lists nodes whose execution returned an error.
	Failed []string
	// Blocked lists nodes that were never attempted.
	Blocked []string
	// Skipped lists nodes marked Computed from the cache without running.
	Skipped []string
	// DispatchOrder lists nodes in the order they were handed to workers.
	DispatchOrder []string

	// Errors holds the cause for every failed or blocked node.
	Errors map[string]error
	Stats  map[string]stats.Usage

	Duration time.Duration
}

func newResult(runID, target string, mode Mode) *Result {
	return &Result{
		RunID:  runID,
		Target: target,
		Mode:   mode,
		Errors: make(map[string]error),
		Stats:  make(map[string]stats.Usage),
	}
}

// OK reports whether no node failed or was blocked.
func (r *Result) OK() bool {
	return len(r.Failed) == 0 && len(r.Blocked) == 0
}

// Err joins the causes of failed nodes followed by those of blocked nodes,
// each group in id order. It is nil when OK.
func (r *Result) Err() error {
	var errs []error
	for _, id := range r.Failed {
		errs = append(errs, r.Errors[id])
	}
	for _, id := range r.Blocked {
		errs = append(errs, r.Errors[id])
	}
	return errors.Join(errs...)
}

func (r *Result) finish(d time.Duration) {
	sort.Strings(r.Succeeded)
	sort.Strings(r.Failed)
	sort.Strings(r.Blocked)
	sort.Strings(r.Skipped)
	r.Duration = d
}
