package storage

import "errors"

var (
	// ErrModelNotFound is returned when a model is not found
	ErrModelNotFound = errors.New("model not found")

	// ErrProviderNotFound is returned when a provider is not found
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderHasModels is returned when soft deleting a provider that still owns models
	ErrProviderHasModels = errors.New("provider still has models")

	// ErrModuleConfigNotFound is returned when no active module configuration exists
	ErrModuleConfigNotFound = errors.New("module configuration not found")

	// ErrRequestLogNotFound is returned when a request log is not found
	ErrRequestLogNotFound = errors.New("request log not found")

	// ErrUnsupportedDriver is returned for database drivers without a schema dialect
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
