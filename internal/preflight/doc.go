// Package preflight provides readiness checks for external services
// and filesystem paths the pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs any failures before the
//     stage schedulers begin.
//   - The CLI "stencil status" command uses individual check functions
//     to display collaborator health.
package preflight
