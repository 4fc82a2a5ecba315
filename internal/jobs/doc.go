// Package jobs registers operator-confirmed sheets as numbered
// production jobs.
//
// Job numbers are allocated per station and material from an atomic
// counter in the queue database, so concurrent operators never collide.
// The local job record is the source of truth: posting to the tracking
// API and republishing the job code onto order-source records are
// best-effort follow-ups that never roll it back.
package jobs
