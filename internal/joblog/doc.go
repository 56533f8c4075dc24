// Package joblog defines the closed set of structured log codes emitted
// during verification jobs, plus the sinks that collect them.
//
// Every job log line is a JSON document {"code": ..., "params": {...}}
// so clients can translate and render it without parsing free text. The
// severity and visibility of a line are derived from its code: DEBUG_*
// codes are debug level and visible only to privileged viewers, ERROR_*
// codes (plus JOB_FAILED and JOB_TIMEOUT) are error level, everything
// else is info and public.
package joblog
