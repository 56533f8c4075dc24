package webhook

import "errors"

// Sentinel errors for the webhook service layer.
var (
	ErrNotFound = errors.New("webhook not found")
)
