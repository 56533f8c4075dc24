// Package jobs manages the async job lifecycle: enqueue, poll, cancel.
//
// Jobs are plain Postgres rows; workers claim queued rows and drive them
// to a terminal state. This service owns the client-facing transitions
// (create, cancel) and the poll view, including the visibility filter
// that hides privileged diagnostic log lines from regular API viewers.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package jobs
