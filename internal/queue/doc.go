// Package queue persists the work item pipeline in SQLite.
//
// Every marketplace line item becomes one row whose boolean flags record
// pipeline progress (parsed, artwork generated, nested, shipped, tagged).
// Each pipeline stage owns a disjoint set of columns and advances items by
// re-checking its eligibility predicate at write time, so stale in-memory
// snapshots cannot double-process an item.
package queue
