// Package app contains the core application logic. It wires the registry,
// cache, event bus, tracing and status server together and exposes the two
// compute paths, decoupled from any specific entrypoint like a CLI.
package app
