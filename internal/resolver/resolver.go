package resolver

import (
	"context"
	"encoding/json"
	"strings"

	"log/slog"

	"stencil/internal/config"
	"stencil/internal/logging"
	"stencil/internal/notifications"
	"stencil/internal/queue"
	"stencil/internal/services"
	"stencil/internal/services/aiparse"
	"stencil/internal/services/ordersource"
	"stencil/internal/stage"
)

// Parser describes the AI surface the resolver needs.
type Parser interface {
	Parse(ctx context.Context, request aiparse.Request) (aiparse.Result, error)
	HealthCheck(ctx context.Context) error
}

// Resolver turns raw personalization text into structured names and year.
// Operator-structured text is parsed deterministically; free text is
// delegated to the AI service with a bounded retry budget.
type Resolver struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	parser   Parser
	notifier notifications.Service
}

// NewResolver constructs the resolver stage using default dependencies.
func NewResolver(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Resolver {
	client := aiparse.NewClient(aiparse.Config{
		APIKey:         cfg.AI.APIKey,
		BaseURL:        cfg.AI.BaseURL,
		Model:          cfg.AI.Model,
		TimeoutSeconds: cfg.AI.TimeoutSeconds,
		DefaultYear:    cfg.AI.DefaultYear,
	})
	return NewResolverWithDependencies(cfg, store, logger, client, notifications.NewService(cfg))
}

// NewResolverWithDependencies allows injecting collaborators (used in tests).
func NewResolverWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, parser Parser, notifier notifications.Service) *Resolver {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "resolver"))
	}
	return &Resolver{store: store, cfg: cfg, logger: stageLogger, parser: parser, notifier: notifier}
}

// Name identifies the stage.
func (r *Resolver) Name() string { return "resolver" }

// Run performs one resolution pass over unparsed items.
func (r *Resolver) Run(ctx context.Context) (stage.Summary, error) {
	var summary stage.Summary

	attemptLimit := r.cfg.AI.AttemptLimit
	items, err := r.store.UnparsedItems(ctx, attemptLimit, r.cfg.Workflow.BatchLimit)
	if err != nil {
		return summary, err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Examined++

		itemCtx := services.WithOrderID(services.WithItemID(ctx, item.ItemID), item.OrderID)
		logger := logging.WithContext(itemCtx, r.logger)

		update, ok := r.resolveStructured(item)
		if !ok {
			update, ok = r.resolveWithAI(itemCtx, item, logger, attemptLimit)
			if !ok {
				summary.Failed++
				continue
			}
		}

		if err := r.store.ApplyParseResult(itemCtx, item.ItemID, update); err != nil {
			summary.Failed++
			logger.Error("persist parse result failed", logging.Error(err))
			continue
		}
		if update.ProofRequested || update.CustomRequest {
			if err := r.propagateHolds(itemCtx, item.OrderID, update); err != nil {
				logger.Error("hold propagation failed", logging.Error(err))
			}
		}
		summary.Succeeded++
		logger.Info("personalization resolved",
			logging.Int("names", len(update.Names)),
			logging.String("year", update.Year),
			logging.Bool("proof_requested", update.ProofRequested),
			logging.Bool("custom_request", update.CustomRequest))
	}

	return summary, nil
}

// HealthCheck verifies the AI service is usable.
func (r *Resolver) HealthCheck(ctx context.Context) stage.Health {
	if err := r.parser.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(r.Name(), err.Error())
	}
	return stage.Healthy(r.Name())
}

// resolveStructured handles operator-structured text carrying the manual
// marker. No external call can fail, so aiSucceeded is set by convention.
func (r *Resolver) resolveStructured(item *queue.WorkItem) (queue.ParseUpdate, bool) {
	text := personalizationText(item)
	parsed, ok := ParseStructured(text)
	if !ok {
		return queue.ParseUpdate{}, false
	}
	year := parsed.Year
	if year == "" {
		year = r.cfg.AI.DefaultYear
	}
	return queue.ParseUpdate{
		Names:       parsed.Names,
		Year:        year,
		Parsed:      true,
		AISucceeded: true,
	}, true
}

func (r *Resolver) resolveWithAI(ctx context.Context, item *queue.WorkItem, logger *slog.Logger, attemptLimit int) (queue.ParseUpdate, bool) {
	result, err := r.parser.Parse(ctx, aiparse.Request{
		Personalization: personalizationText(item),
		BuyerNote:       item.BuyerNote,
	})
	if err != nil {
		if recordErr := r.store.RecordParseFailure(ctx, item.ItemID, result.Raw); recordErr != nil {
			logger.Error("record parse failure failed", logging.Error(recordErr))
		}
		logger.Warn("ai parse failed",
			logging.Int("attempt", item.ParseAttempts+1),
			logging.Error(err))
		if item.ParseAttempts+1 >= attemptLimit {
			logger.Error("parse retry budget exhausted; item needs manual review",
				logging.Alert("manual_review"))
			if notifyErr := r.notifier.NotifyReviewNeeded(ctx, item.OrderNumber, "parse retries exhausted"); notifyErr != nil {
				logger.Warn("review notification failed", logging.Error(notifyErr))
			}
		}
		return queue.ParseUpdate{}, false
	}

	return queue.ParseUpdate{
		Names:          result.Names,
		Year:           result.Year,
		AIResponse:     result.Raw,
		Parsed:         true,
		AISucceeded:    true,
		ProofRequested: result.RequestedProof,
		CustomRequest:  result.ManualReview,
		KeepOrder:      result.KeepOrder,
	}, true
}

// propagateHolds fans a new hold out to every sibling so the whole order
// pauses together. Existing holds on siblings are preserved.
func (r *Resolver) propagateHolds(ctx context.Context, orderID string, update queue.ParseUpdate) error {
	siblings, err := r.store.ListByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	proof := update.ProofRequested
	custom := update.CustomRequest
	for _, sibling := range siblings {
		proof = proof || sibling.ProofRequested
		custom = custom || sibling.CustomRequest
	}
	return r.store.SyncOrderHolds(ctx, orderID, proof, custom)
}

// personalizationText joins the item's non-color option values into the
// text handed to the parser.
func personalizationText(item *queue.WorkItem) string {
	var options []ordersource.ItemOption
	if err := json.Unmarshal([]byte(item.RawOptions), &options); err != nil {
		return ""
	}
	var parts []string
	for _, option := range options {
		name := strings.ToLower(strings.TrimSpace(option.Name))
		if name == "" || name == "customizedurl" || isColorName(name) {
			continue
		}
		if value := strings.TrimSpace(option.Value); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, "\n")
}

func isColorName(name string) bool {
	switch name {
	case "color", "colour", "material":
		return true
	}
	return false
}
