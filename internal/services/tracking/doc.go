// Package tracking posts registered production jobs to the external
// tracking API. Posting is best-effort; callers persist jobs locally first.
package tracking
