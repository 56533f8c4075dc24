package workspacecfg

import "errors"

// Sentinel errors for the workspace config service layer.
var (
	ErrEntryNotFound = errors.New("config entry not found")
)

// ValidationError reports a rejected config update. The API layer maps it
// to a VALIDATION_ERROR response carrying the offending values.
type ValidationError struct {
	Message string
	Details map[string]any
}

func (e *ValidationError) Error() string { return e.Message }
