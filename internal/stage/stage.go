package stage

import "context"

// Summary reports what one batch pass accomplished.
type Summary struct {
	Examined  int
	Succeeded int
	Failed    int
	Skipped   int
}

// Add merges another summary into this one.
func (s *Summary) Add(other Summary) {
	s.Examined += other.Examined
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// Runner describes the contract the workflow manager needs from each stage.
// Run performs one batch pass: select eligible items, process them, record
// outcomes. Item-level failures are counted in the summary; the returned
// error is reserved for pass-level failures such as an unreachable store.
type Runner interface {
	Name() string
	Run(ctx context.Context) (Summary, error)
	HealthCheck(ctx context.Context) Health
}
