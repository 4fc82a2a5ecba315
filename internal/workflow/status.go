package workflow

import (
	"context"

	"stencil/internal/logging"
	"stencil/internal/queue"
	"stencil/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastRuns    map[string]RunRecord
	QueueStats  queue.HealthSummary
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastRuns := make(map[string]RunRecord, len(m.lastRuns))
	for name, record := range m.lastRuns {
		lastRuns[name] = record
	}
	m.mu.RUnlock()

	stats, err := m.store.Summary(ctx, m.cfg.AI.AttemptLimit)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(m.stages))
	for _, scheduled := range m.stages {
		health[scheduled.Runner.Name()] = scheduled.Runner.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		LastRuns:    lastRuns,
		QueueStats:  stats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}
