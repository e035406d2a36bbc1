package dispatcher

import (
	"errors"
	"fmt"

	"aicore/internal/models"
	"aicore/internal/providers"
)

var (
	// ErrAIDisabled is returned while the global kill switch is off
	ErrAIDisabled = errors.New("AI features are disabled")

	// ErrNoAvailableModel matches every *NoAvailableModelError
	ErrNoAvailableModel = errors.New("no available AI model")

	// ErrUpstream matches every *UpstreamError
	ErrUpstream = errors.New("AI request failed")
)

// NoAvailableModelError means no active provider and model can serve the module
type NoAvailableModelError struct {
	Module   string
	TaskType models.TaskType
}

func (e *NoAvailableModelError) Error() string {
	return fmt.Sprintf("no available AI model for module %q (task %s)", e.Module, e.TaskType)
}

func (e *NoAvailableModelError) Unwrap() error {
	return ErrNoAvailableModel
}

// UpstreamError is a failed vendor call. A usage row has already been
// written by the time it is returned.
type UpstreamError struct {
	Kind    providers.ErrorKind
	ModelID int64
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return "AI request failed: " + e.Message
}

// Unwrap exposes both ErrUpstream and the underlying provider error
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

func newUpstreamError(modelID int64, err error) *UpstreamError {
	return &UpstreamError{
		Kind:    providers.KindOf(err),
		ModelID: modelID,
		Message: err.Error(),
		Err:     err,
	}
}
