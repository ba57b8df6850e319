package scheduler

import (
	"fmt"
	"strings"
)

// Mode selects which nodes a run computes.
type Mode int

const (
	// Incremental computes the target and its ancestors, reusing every node
	// whose cached output is still valid.
	Incremental Mode = iota
	// Full computes the target and all of its ancestors regardless of the
	// cache.
	Full
	// SingleNode computes only the target. All of its direct inputs must
	// already be computed.
	SingleNode
)

func (m Mode) String() string {
	switch m {
	case Incremental:
		return "incremental"
	case Full:
		return "full"
	case SingleNode:
		return "single"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names printed by Mode.String. An empty name is
// Incremental.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "incremental":
		return Incremental, nil
	case "full":
		return Full, nil
	case "single", "single-node", "singlenode":
		return SingleNode, nil
	default:
		return Incremental, fmt.Errorf("unknown build mode %q (want full, incremental or single)", name)
	}
}
