// Package registry maps node type names to their implementations.
//
// Modules add their kinds at startup through Module.Register. After that the
// registry is read-only: the graph builder asks it whether a type exists and
// the executor asks it for a fresh Runnable and validates parameters against
// the kind's JSON schema.
package registry
