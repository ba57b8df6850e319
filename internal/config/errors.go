package config

import (
	"errors"
	"fmt"
)

// SceneLoadError reports a scene that could not be read or understood.
type SceneLoadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SceneLoadError) Error() string {
	return fmt.Sprintf("failed to load scene %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SceneLoadError) Unwrap() error {
	return e.Err
}

// LoadError wraps err into a *SceneLoadError unless it already is one.
func LoadError(path string, err error) error {
	if err == nil {
		return nil
	}
	var sle *SceneLoadError
	if errors.As(err, &sle) {
		return err
	}
	return &SceneLoadError{Path: path, Err: err}
}
