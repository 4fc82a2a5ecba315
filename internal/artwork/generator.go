package artwork

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"stencil/internal/config"
	"stencil/internal/logging"
	"stencil/internal/notifications"
	"stencil/internal/preflight"
	"stencil/internal/queue"
	"stencil/internal/services"
	"stencil/internal/stage"
)

// Generator drives per-item artwork generation through the external
// document-automation tool.
type Generator struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	driver   Driver
	notifier notifications.Service
}

// NewGenerator constructs the artwork stage using default dependencies.
func NewGenerator(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Generator {
	return NewGeneratorWithDependencies(cfg, store, logger, NewDriver(cfg), notifications.NewService(cfg))
}

// NewGeneratorWithDependencies allows injecting collaborators (used in tests).
func NewGeneratorWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, driver Driver, notifier notifications.Service) *Generator {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "artwork"))
	}
	return &Generator{store: store, cfg: cfg, logger: stageLogger, driver: driver, notifier: notifier}
}

// Name identifies the stage.
func (g *Generator) Name() string { return "artwork" }

// Run performs one generation pass. Driver failures mark the item with a
// generation error and never retry automatically; a missing driver aborts
// the whole pass since no item could succeed.
func (g *Generator) Run(ctx context.Context) (stage.Summary, error) {
	var summary stage.Summary

	if err := g.driver.Available(); err != nil {
		return summary, services.Wrap(services.ErrExternalTool, "artwork", "check driver",
			"Document-automation driver unavailable; check artwork.driver_path", err)
	}

	items, err := g.store.ArtworkEligibleItems(ctx, g.cfg.Workflow.BatchLimit)
	if err != nil {
		return summary, err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Examined++

		itemCtx := services.WithOrderID(services.WithItemID(ctx, item.ItemID), item.OrderID)
		logger := logging.WithContext(itemCtx, g.logger)

		filename, genErr := g.generateItem(itemCtx, item)
		update := queue.ArtworkUpdate{Generated: true}
		if genErr != nil {
			update.GenerationErr = genErr.Error()
			summary.Failed++
			logger.Error("artwork generation failed", logging.Error(genErr))
			if notifyErr := g.notifier.NotifyReviewNeeded(itemCtx, item.OrderNumber, "artwork generation failed"); notifyErr != nil {
				logger.Warn("review notification failed", logging.Error(notifyErr))
			}
		} else {
			update.Succeeded = true
			update.OutputFilename = filename
			summary.Succeeded++
			logger.Info("artwork generated", logging.String("output", filename))
		}

		if err := g.store.ApplyArtworkResult(itemCtx, item.ItemID, update); err != nil {
			logger.Error("persist artwork result failed", logging.Error(err))
		}
	}

	return summary, nil
}

// HealthCheck verifies the driver binary and artwork volume are usable.
func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if err := g.driver.Available(); err != nil {
		return stage.Unhealthy(g.Name(), err.Error())
	}
	if err := preflight.CheckFreeSpace(g.cfg.Paths.ArtworkDir, g.cfg.Artwork.MinFreeSpaceGiB); err != nil {
		return stage.Unhealthy(g.Name(), err.Error())
	}
	return stage.Healthy(g.Name())
}

func (g *Generator) generateItem(ctx context.Context, item *queue.WorkItem) (string, error) {
	if len(item.Names) == 0 {
		return "", fmt.Errorf("empty names list")
	}
	if max := g.cfg.Artwork.MaxNames; max > 0 && len(item.Names) > max {
		return "", fmt.Errorf("too many names: %d exceeds limit %d", len(item.Names), max)
	}
	if err := preflight.CheckFreeSpace(g.cfg.Paths.ArtworkDir, g.cfg.Artwork.MinFreeSpaceGiB); err != nil {
		return "", err
	}

	filename := OutputFilename(item.OrderNumber, item.ItemID)
	doc := NewDocument(item.Names, item.Year, filename)
	if err := WriteDocument(g.cfg.Artwork.HandoffPath, doc); err != nil {
		return "", err
	}

	if err := g.driver.Generate(ctx); err != nil {
		return "", err
	}

	artifact := filepath.Join(g.cfg.Paths.ArtworkDir, filename)
	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("expected artifact not found: %s", artifact)
	}
	return filename, nil
}
