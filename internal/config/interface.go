package config

import "context"

// Loader is the interface for a format-specific scene loader.
type Loader interface {
	// Load reads the given scene files and translates them into a Scene.
	// Any failure is returned as a *SceneLoadError.
	Load(ctx context.Context, paths ...string) (*Scene, error)
}
