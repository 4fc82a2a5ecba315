package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"stencil/internal/artwork"
	"stencil/internal/config"
	"stencil/internal/ingest"
	"stencil/internal/logging"
	"stencil/internal/nesting"
	"stencil/internal/queue"
	"stencil/internal/resolver"
	"stencil/internal/stage"
	"stencil/internal/tagsync"
)

// ScheduledStage pairs a stage runner with its polling interval.
type ScheduledStage struct {
	Runner   stage.Runner
	Interval time.Duration
}

// Manager coordinates the independently scheduled pipeline stages. Each
// stage runs in its own goroutine on its own interval; concurrency
// exists only between stages, never inside one, and the disjoint column
// ownership in the queue keeps their writes from conflicting.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	stages []ScheduledStage

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastRuns map[string]RunRecord
}

// RunRecord captures the outcome of a stage's most recent pass.
type RunRecord struct {
	Stage     string
	StartedAt time.Time
	Duration  time.Duration
	Summary   stage.Summary
	Err       string
}

// NewManager constructs a manager with the default stage set wired from
// the configuration.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	interval := func(seconds int) time.Duration { return time.Duration(seconds) * time.Second }
	return NewManagerWithStages(cfg, store, logger, []ScheduledStage{
		{Runner: ingest.NewIngester(cfg, store, logger), Interval: interval(cfg.Workflow.IngestInterval)},
		{Runner: resolver.NewResolver(cfg, store, logger), Interval: interval(cfg.Workflow.ResolveInterval)},
		{Runner: artwork.NewGenerator(cfg, store, logger), Interval: interval(cfg.Workflow.ArtworkInterval)},
		{Runner: nesting.NewPlanner(cfg, store, logger), Interval: interval(cfg.Workflow.NestingInterval)},
		{Runner: tagsync.NewSyncer(cfg, store, logger), Interval: interval(cfg.Workflow.TagSyncInterval)},
	})
}

// NewManagerWithStages constructs a manager over an explicit stage set
// (used in tests).
func NewManagerWithStages(cfg *config.Config, store *queue.Store, logger *slog.Logger, stages []ScheduledStage) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		stages:   stages,
		lastRuns: make(map[string]RunRecord),
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(len(m.stages))
	m.mu.Unlock()

	for _, scheduled := range m.stages {
		go m.runLoop(runCtx, scheduled)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}
