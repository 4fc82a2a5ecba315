// Package daemon runs the stage scheduler as a long-lived process with
// single-instance locking and startup preflight checks.
package daemon
