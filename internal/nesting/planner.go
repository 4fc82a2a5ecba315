package nesting

import (
	"context"
	"path/filepath"
	"sort"

	"log/slog"

	"stencil/internal/config"
	"stencil/internal/logging"
	"stencil/internal/notifications"
	"stencil/internal/preflight"
	"stencil/internal/queue"
	"stencil/internal/stage"
)

// Planner batches nesting-eligible items into color buckets, hands each
// bucket to the packer, and records materialized sheets.
type Planner struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	packer   Packer
	notifier notifications.Service
}

// NewPlanner constructs the nesting stage using default dependencies.
func NewPlanner(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Planner {
	return NewPlannerWithDependencies(cfg, store, logger, NewSlotPacker(), notifications.NewService(cfg))
}

// NewPlannerWithDependencies allows injecting collaborators (used in tests).
func NewPlannerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, packer Packer, notifier notifications.Service) *Planner {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "nesting"))
	}
	return &Planner{store: store, cfg: cfg, logger: stageLogger, packer: packer, notifier: notifier}
}

// Name identifies the stage.
func (p *Planner) Name() string { return "nesting" }

// Run performs one planning pass. Items the packer rejects stay
// unnested and are offered again on the next pass; items placed on a
// sheet are flagged nested as a single group once the sheet's handoff
// document is on disk.
func (p *Planner) Run(ctx context.Context) (stage.Summary, error) {
	var summary stage.Summary

	items, err := p.store.NestingEligibleItems(ctx)
	if err != nil {
		return summary, err
	}
	summary.Examined = len(items)
	if len(items) == 0 {
		return summary, nil
	}

	filenames := make(map[string]string, len(items))
	for _, item := range items {
		filenames[item.ItemID] = item.OutputFilename
	}

	for _, bucket := range buildBuckets(items, p.cfg.Nesting.MixedColorLabel) {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		sheets := p.packer.Pack(bucket.items, Constraints{Capacity: p.cfg.Nesting.SheetCapacity})
		for _, sheet := range sheets {
			summary.Skipped += len(sheet.Rejected)
			if len(sheet.Rejected) > 0 {
				p.logger.Warn("packer rejected items",
					logging.String("sheet_id", sheet.SheetID),
					logging.String("color", bucket.color),
					logging.Int("rejected", len(sheet.Rejected)))
			}
			if len(sheet.Placed) == 0 {
				continue
			}

			if err := p.materialize(ctx, bucket.color, sheet, filenames); err != nil {
				summary.Failed += len(sheet.Placed)
				p.logger.Error("sheet materialization failed",
					logging.String("sheet_id", sheet.SheetID),
					logging.Error(err))
				continue
			}
			summary.Succeeded += len(sheet.Placed)

			p.logger.Info("sheet nested",
				logging.String("sheet_id", sheet.SheetID),
				logging.String("color", bucket.color),
				logging.Int("items", len(sheet.Placed)))
			if err := p.notifier.NotifySheetNested(ctx, sheet.SheetID, bucket.color, len(sheet.Placed)); err != nil {
				p.logger.Warn("sheet notification failed", logging.Error(err))
			}
		}
	}

	return summary, nil
}

func (p *Planner) materialize(ctx context.Context, bucketColor string, sheet Sheet, filenames map[string]string) error {
	var itemIDs []string
	var sheetFiles []string
	for _, item := range sheet.Placed {
		itemIDs = append(itemIDs, item.ID)
		sheetFiles = append(sheetFiles, filenames[item.ID])
	}

	doc := NewSheetDocument(sheet.SheetID, bucketColor, sheet.Placed, sheetFiles)
	if err := WriteSheetDocument(filepath.Join(p.cfg.Paths.SheetDir, sheet.SheetID+".json"), doc); err != nil {
		return err
	}
	if p.cfg.Nesting.HandoffPath != "" {
		if err := WriteSheetDocument(p.cfg.Nesting.HandoffPath, doc); err != nil {
			return err
		}
	}

	return p.store.MarkNested(ctx, sheet.SheetID, itemIDs)
}

// HealthCheck verifies the sheet directory is writable.
func (p *Planner) HealthCheck(ctx context.Context) stage.Health {
	if result := preflight.CheckDirectoryAccess("Sheet directory", p.cfg.Paths.SheetDir); !result.Passed {
		return stage.Unhealthy(p.Name(), result.Detail)
	}
	return stage.Healthy(p.Name())
}

type colorBucket struct {
	color string
	items []Item
}

// buildBuckets groups items into color buckets keyed by their order's
// derived color: the shared color when every item in the order agrees,
// the mixed label otherwise. Input arrives sorted by order number then
// item id and that order is preserved within each bucket, so identical
// input always yields identical buckets.
func buildBuckets(items []*queue.WorkItem, mixedLabel string) []colorBucket {
	orderColors := make(map[string]string)
	for _, item := range items {
		color, seen := orderColors[item.OrderID]
		switch {
		case !seen:
			orderColors[item.OrderID] = item.Color
		case color != item.Color:
			orderColors[item.OrderID] = mixedLabel
		}
	}

	grouped := make(map[string][]Item)
	for _, item := range items {
		color := orderColors[item.OrderID]
		grouped[color] = append(grouped[color], Item{
			ID:          item.ItemID,
			OrderNumber: item.OrderNumber,
			Color:       item.Color,
		})
	}

	colors := make([]string, 0, len(grouped))
	for color := range grouped {
		colors = append(colors, color)
	}
	sort.Strings(colors)

	buckets := make([]colorBucket, 0, len(colors))
	for _, color := range colors {
		buckets = append(buckets, colorBucket{color: color, items: grouped[color]})
	}
	return buckets
}
