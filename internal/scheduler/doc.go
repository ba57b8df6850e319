// Package scheduler decides which nodes of a graph must run for a target and
// a build mode, and drives them to completion.
//
// # How It Works
//
// A Worker is bound to (graph, target, mode) with Configure. Compute then:
//  1. Plans the run: the target plus its ancestors, narrowed by the mode.
//     Incremental runs reuse every node whose persisted output carries the
//     node's current fingerprint.
//  2. Splits the nodes to run into waves. A node's wave is one more than the
//     deepest wave among its planned inputs.
//  3. Dispatches each wave to a pool of workers in ascending id order. The
//     next wave starts only when every node of the current one is terminal.
//  4. Marks every planned descendant of a failed node as Blocked, and every
//     unstarted node as Blocked with a CancelledError when the context ends.
//
// Workers only call the executor. Every status change is made by the
// goroutine running Compute, so node state has a single writer. A graph can
// be computed by one Worker at a time.
package scheduler
