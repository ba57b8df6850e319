// Package cli is responsible for parsing command-line arguments, running the
// selected command and mapping its outcome to a process exit code.
package cli
