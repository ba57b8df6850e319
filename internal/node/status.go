package node

import "fmt"

// Status is the compute status of a node.
type Status int32

const (
	// NotComputed is the initial status: no output is known for the node.
	NotComputed Status = iota
	// WaitingOnDependency means the node is planned and waits for its inputs.
	WaitingOnDependency
	// Running means the node has been handed to an executor.
	Running
	// Computed means the node has a valid output, either fresh or reused.
	Computed
	// Error means the node's own execution failed.
	Error
	// Blocked means the node was never attempted, because an ancestor failed
	// or the run was cancelled.
	Blocked
)

var statusNames = [...]string{
	NotComputed:         "NotComputed",
	WaitingOnDependency: "WaitingOnDependency",
	Running:             "Running",
	Computed:            "Computed",
	Error:               "Error",
	Blocked:             "Blocked",
}

// String returns the canonical name of the status.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int32(s))
	}
	return statusNames[s]
}

// IsTerminal reports whether a run can no longer change the status.
func (s Status) IsTerminal() bool {
	return s == Computed || s == Error || s == Blocked
}

// MarshalText renders the status by name, so JSON payloads stay readable.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return NotComputed, fmt.Errorf("unknown node status %q", name)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
