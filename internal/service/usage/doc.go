// Package usage tracks per-workspace monthly counters and plan quotas.
//
// One row per (workspace, period) accumulates verification and export
// counts; periods are "YYYY-MM" in UTC. Quota checks compare the current
// period's verification count against the workspace plan's monthly
// allowance before new work is accepted.
package usage
