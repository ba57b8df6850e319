// Package graph holds the dependency graph of a scene: its frozen topology
// and the per-node compute state.
//
// # Architecture
//
// The Graph is a facade over two concerns:
//
//	┌─────────────────────────────────────┐
//	│               Graph                 │
//	│  (single API for the scheduler,     │
//	│   the status server and the CLI)    │
//	└──────────┬────────────┬─────────────┘
//	           │            │
//	           ▼            ▼
//	  ┌────────────┐  ┌────────────┐
//	  │  Topology  │  │ Node State │
//	  │ (in Graph) │  │   Store    │
//	  └────────────┘  └────────────┘
//
// **Topology** (nodes, inputs, dependents) is validated once by Build: ids
// are unique, every reference resolves, every type is registered, and the
// inputs form a DAG. A cycle fails construction with a *CycleError and no
// graph is returned. The topology only changes through AddNode, RemoveNode
// and SetParam, and only while no compute run holds the graph. Every change
// bumps Version, which is what fingerprint memoization keys on.
//
// **Node state** (nodestore.Store) is the mutable status, output and error
// of each node. The scheduler is its single writer for the duration of a run;
// readers such as the status server may observe it concurrently.
//
// # Ordering
//
// TopologicalOrder breaks ties by ascending node id, so the order of any
// subset is reproducible across runs and processes.
//
// # Single Writer
//
// Acquire hands out an exclusive lease. A second Acquire while the first is
// held fails with ErrRunInProgress, and topology mutations fail with
// ErrGraphFrozen.
package graph
