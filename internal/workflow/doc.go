// Package workflow schedules the pipeline stages against the shared queue.
//
// Each registered stage runs in its own goroutine on its own interval.
// A failed pass is retried on the shorter error interval; per-item
// failures are the stage's business and never abort scheduling.
package workflow
