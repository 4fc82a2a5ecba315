// Package logging assembles structured slog loggers and formatting helpers
// used across Stencil stages.
//
// It centralizes level and output plumbing and exposes context-aware helpers
// so stage code can automatically tag log lines with work item IDs, order IDs,
// stages, and correlation IDs. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
