package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned by Compute before a successful Configure.
var ErrNotConfigured = errors.New("worker is not configured")

// UnmetDependencyError is returned in SingleNode mode when a direct input
// of the target is not computed.
type UnmetDependencyError struct {
	Node   string
	Inputs []string
}

func (e *UnmetDependencyError) Error() string {
	return fmt.Sprintf("node %q has inputs that are not computed: %s", e.Node, strings.Join(e.Inputs, ", "))
}

// CancelledError is the cause recorded on nodes that were not run because
// the run was cancelled.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return "cancelled"
	}
	return fmt.Sprintf("cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// UpstreamError is the cause recorded on nodes blocked by a failed ancestor.
type UpstreamError struct {
	Upstream string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("blocked by failed upstream node %q", e.Upstream)
}
