package cli

import (
	"errors"

	"github.com/specialistvlad/burstgraph/internal/app"
	"github.com/specialistvlad/burstgraph/internal/config"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitSceneLoad = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(msg string) error {
	return &ExitError{Code: ExitUsage, Message: msg}
}

// toExitError classifies err into an exit code. Errors that are not
// recognized are failures.
func toExitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var loadErr *config.SceneLoadError
	switch {
	case errors.As(err, &loadErr):
		return &ExitError{Code: ExitSceneLoad, Message: err.Error()}
	case errors.Is(err, app.ErrInvalidConfig):
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	default:
		return &ExitError{Code: ExitFailure, Message: err.Error()}
	}
}
