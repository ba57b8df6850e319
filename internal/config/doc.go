// Package config defines the format-agnostic scene model and the contract
// format-specific loaders satisfy.
//
// A loader (hcl_adapter, yaml_adapter) reads scene files and produces a
// Scene: a flat list of node specifications. The graph package consumes the
// Scene and never looks at any file format itself. Every loader failure is
// reported as a *SceneLoadError so callers can tell a bad scene apart from a
// failing run.
package config
