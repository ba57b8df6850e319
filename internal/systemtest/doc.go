// Package systemtest holds end-to-end tests that load real scene files and
// compute them through the application layer. It contains no production
// code.
package systemtest
