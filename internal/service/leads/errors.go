package leads

import "errors"

var (
	// ErrNotFound is returned when a lead does not exist in the workspace.
	ErrNotFound = errors.New("lead not found")

	// ErrOptedOut is returned when an operation is refused because the
	// lead has opted out.
	ErrOptedOut = errors.New("lead has opted out")
)
