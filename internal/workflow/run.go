package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stencil/internal/logging"
	"stencil/internal/services"
	"stencil/internal/stage"
)

func (m *Manager) runLoop(ctx context.Context, scheduled ScheduledStage) {
	defer m.wg.Done()

	logger := m.logger.With(logging.String(logging.FieldComponent, "workflow"),
		logging.String(logging.FieldStage, scheduled.Runner.Name()))

	for {
		_, err := m.runOnce(ctx, scheduled.Runner)

		wait := scheduled.Interval
		if err != nil && !errors.Is(err, context.Canceled) {
			wait = time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
			logger.Warn("pass failed; retrying sooner",
				logging.Error(err),
				logging.Int("retry_seconds", m.cfg.Workflow.ErrorRetryInterval))
		}
		if wait <= 0 {
			wait = time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (m *Manager) runOnce(ctx context.Context, runner stage.Runner) (stage.Summary, error) {
	runCtx := services.WithStage(services.WithRequestID(ctx, uuid.NewString()), runner.Name())

	started := time.Now()
	summary, err := runner.Run(runCtx)
	record := RunRecord{
		Stage:     runner.Name(),
		StartedAt: started,
		Duration:  time.Since(started),
		Summary:   summary,
	}
	if err != nil {
		record.Err = err.Error()
		m.setLastError(err)
	}

	m.mu.Lock()
	m.lastRuns[record.Stage] = record
	m.mu.Unlock()

	if err == nil {
		logging.WithContext(runCtx, m.logger).Info("stage pass complete",
			logging.Int("examined", summary.Examined),
			logging.Int("succeeded", summary.Succeeded),
			logging.Int("failed", summary.Failed),
			logging.Int("skipped", summary.Skipped))
	}
	return summary, err
}

// RunStage executes a single named stage pass on demand.
func (m *Manager) RunStage(ctx context.Context, name string) (stage.Summary, error) {
	for _, scheduled := range m.stages {
		if scheduled.Runner.Name() == name {
			return m.runOnce(ctx, scheduled.Runner)
		}
	}
	return stage.Summary{}, fmt.Errorf("unknown stage %q", name)
}

// StageNames lists the registered stages in scheduling order.
func (m *Manager) StageNames() []string {
	names := make([]string, 0, len(m.stages))
	for _, scheduled := range m.stages {
		names = append(names, scheduled.Runner.Name())
	}
	return names
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
