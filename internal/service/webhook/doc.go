// Package webhook manages subscriptions and delivers signed event
// notifications.
//
// Subscriptions are per workspace; each names a URL, a server-generated
// secret, and a comma-separated event list. The dispatcher POSTs
// {"event": ..., "data": ...} with an HMAC-SHA256 signature header and
// records every attempt as a delivery row. Failed deliveries retry with
// exponential backoff in goroutines owned by the dispatcher, so a slow
// receiver never blocks a job worker.
package webhook
