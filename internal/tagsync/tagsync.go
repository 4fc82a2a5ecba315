package tagsync

import (
	"context"
	"time"

	"log/slog"

	"stencil/internal/config"
	"stencil/internal/logging"
	"stencil/internal/queue"
	"stencil/internal/services/ordersource"
	"stencil/internal/stage"
)

// Tagger applies marketplace tags on the order source.
type Tagger interface {
	AddTag(ctx context.Context, orderID string, tagID int) (ordersource.RateLimit, error)
	HealthCheck(ctx context.Context) error
}

// Syncer republishes queue state onto the order source as tags: ready
// orders get the ready and routing tags, stuck orders get the
// intervention tag.
type Syncer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	tagger Tagger
}

// NewSyncer constructs the tag sync stage using default dependencies.
func NewSyncer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Syncer {
	client := ordersource.NewClient(ordersource.Config{
		BaseURL:        cfg.OrderSource.BaseURL,
		APIKey:         cfg.OrderSource.APIKey,
		PartnerKey:     cfg.OrderSource.PartnerKey,
		TimeoutSeconds: cfg.OrderSource.RequestTimeout,
	})
	return NewSyncerWithDependencies(cfg, store, logger, client)
}

// NewSyncerWithDependencies allows injecting collaborators (used in tests).
func NewSyncerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, tagger Tagger) *Syncer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "tagsync"))
	}
	return &Syncer{store: store, cfg: cfg, logger: stageLogger, tagger: tagger}
}

// Name identifies the stage.
func (s *Syncer) Name() string { return "tagsync" }

// Run performs one sync pass. Tagging is fire and forget: once an order
// has been attempted it is flagged locally even when the API rejected
// the call, so a flaky order never wedges the pass. Operators re-trigger
// tagging by clearing the flag.
func (s *Syncer) Run(ctx context.Context) (stage.Summary, error) {
	var summary stage.Summary

	intervention, err := s.store.InterventionOrders(ctx, s.cfg.AI.AttemptLimit)
	if err != nil {
		return summary, err
	}
	ready, err := s.store.ReadyOrders(ctx)
	if err != nil {
		return summary, err
	}

	for _, orderID := range intervention {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Add(s.tagOrder(ctx, orderID, s.cfg.Tags.InterventionTagID))
	}
	for _, orderID := range ready {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Add(s.tagOrder(ctx, orderID, s.cfg.Tags.ReadyTagID, s.cfg.Tags.RoutingTagID))
	}

	return summary, nil
}

func (s *Syncer) tagOrder(ctx context.Context, orderID string, tagIDs ...int64) stage.Summary {
	var summary stage.Summary
	summary.Examined = 1

	logger := s.logger.With(logging.String(logging.FieldOrderID, orderID))

	failed := false
	attempted := false
	for _, tagID := range tagIDs {
		if tagID == 0 {
			continue
		}
		attempted = true

		limit, err := s.tagger.AddTag(ctx, orderID, int(tagID))
		if err != nil {
			failed = true
			logger.Error("tag apply failed", logging.Int64("tag_id", tagID), logging.Error(err))
		} else {
			logger.Info("tag applied", logging.Int64("tag_id", tagID))
		}

		if pause := PauseDuration(limit, s.cfg.Tags.RateLimitThreshold); pause > 0 {
			logger.Warn("rate limit low; pausing",
				logging.Int("remaining", limit.Remaining),
				logging.Int("pause_seconds", int(pause/time.Second)))
			select {
			case <-ctx.Done():
				return summary
			case <-time.After(pause):
			}
		}
	}
	if !attempted {
		summary.Skipped = 1
		return summary
	}

	if err := s.store.MarkOrderTagged(ctx, orderID); err != nil {
		logger.Error("mark tagged failed", logging.Error(err))
		summary.Failed = 1
		return summary
	}

	if failed {
		summary.Failed = 1
	} else {
		summary.Succeeded = 1
	}
	return summary
}

// PauseDuration returns how long to back off after a tag call given the
// reported throttle state. Zero means keep going.
func PauseDuration(limit ordersource.RateLimit, threshold int) time.Duration {
	if !limit.Known || threshold <= 0 {
		return 0
	}
	if limit.Remaining >= threshold {
		return 0
	}
	return time.Duration(limit.ResetSeconds+1) * time.Second
}

// HealthCheck verifies the order source answers.
func (s *Syncer) HealthCheck(ctx context.Context) stage.Health {
	if err := s.tagger.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(s.Name(), err.Error())
	}
	return stage.Healthy(s.Name())
}
