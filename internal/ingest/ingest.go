package ingest

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
	"stencil/internal/services/ordersource"
	"stencil/internal/stage"
)

// Fetcher describes the order source surface the ingester needs.
type Fetcher interface {
	FetchProductOrders(ctx context.Context, sku string) ([]ordersource.Order, error)
	HealthCheck(ctx context.Context) error
}

// Ingester pulls open orders from the marketplace into the queue and
// reconciles the shipped flag per store and SKU scope.
type Ingester struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	source   Fetcher
	notifier notifications.Service
}

// NewIngester constructs the ingestion stage using default dependencies.
func NewIngester(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Ingester {
	client := ordersource.NewClient(ordersource.Config{
		BaseURL:        cfg.OrderSource.BaseURL,
		APIKey:         cfg.OrderSource.APIKey,
		PartnerKey:     cfg.OrderSource.PartnerKey,
		TimeoutSeconds: cfg.OrderSource.RequestTimeout,
	})
	return NewIngesterWithDependencies(cfg, store, logger, client, notifications.NewService(cfg))
}

// NewIngesterWithDependencies allows injecting collaborators (used in tests).
func NewIngesterWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, source Fetcher, notifier notifications.Service) *Ingester {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "ingest"))
	}
	return &Ingester{store: store, cfg: cfg, logger: stageLogger, source: source, notifier: notifier}
}

// Name identifies the stage.
func (i *Ingester) Name() string { return "ingest" }

// Run performs one ingestion pass over every configured store and SKU.
// A fetch failure skips reconciliation for that scope only; absence of an
// item from a successful fetch is what marks it shipped.
func (i *Ingester) Run(ctx context.Context) (stage.Summary, error) {
	var summary stage.Summary
	var newItems, shippedTotal, reactivatedTotal int
	scopes := 0
	failedScopes := 0

	for _, store := range i.cfg.Stores {
		for _, sku := range store.SKUs {
			scopes++
			logger := i.logger.With(
				logging.String(logging.FieldStoreName, store.Name),
				logging.String("sku", sku),
			)

			orders, err := i.source.FetchProductOrders(ctx, sku)
			if err != nil {
				failedScopes++
				summary.Failed++
				logger.Warn("order fetch failed; scope skipped", logging.Error(err))
				continue
			}

			openIDs := make([]string, 0, len(orders))
			for _, order := range orders {
				for _, item := range order.Items {
					summary.Examined++
					if item.OnlyCustomizedURL() {
						summary.Skipped++
						logger.Debug("personalization pending; item skipped",
							logging.String(logging.FieldItemID, item.ItemID))
						continue
					}
					openIDs = append(openIDs, item.ItemID)

					ingested, err := i.ingestItem(ctx, store, sku, order, item)
					if err != nil {
						summary.Failed++
						logger.Error("item ingest failed",
							logging.String(logging.FieldItemID, item.ItemID),
							logging.Error(err))
						continue
					}
					summary.Succeeded++
					if ingested {
						newItems++
					}
				}
			}

			shipped, reactivated, err := i.store.ReconcileScope(ctx, store.Name, sku, openIDs)
			if err != nil {
				summary.Failed++
				logger.Error("reconciliation failed", logging.Error(err))
				continue
			}
			shippedTotal += shipped
			reactivatedTotal += reactivated
			logger.Info("scope reconciled",
				logging.Int("open", len(openIDs)),
				logging.Int("shipped", shipped),
				logging.Int("reactivated", reactivated))
		}
	}

	if newItems > 0 || shippedTotal > 0 || reactivatedTotal > 0 {
		if err := i.notifier.NotifyIngestCompleted(ctx, newItems, shippedTotal, reactivatedTotal); err != nil {
			i.logger.Warn("ingest notification failed", logging.Error(err))
		}
	}

	if scopes > 0 && failedScopes == scopes {
		return summary, services.Wrap(services.ErrTransient, "ingest", "fetch orders",
			"Order source unreachable for every configured scope; will retry on next schedule", nil)
	}
	return summary, nil
}

// HealthCheck verifies the order source is reachable.
func (i *Ingester) HealthCheck(ctx context.Context) stage.Health {
	if len(i.cfg.Stores) == 0 {
		return stage.Unhealthy(i.Name(), "no stores configured")
	}
	if err := i.source.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(i.Name(), err.Error())
	}
	return stage.Healthy(i.Name())
}

func (i *Ingester) ingestItem(ctx context.Context, store config.Store, sku string, order ordersource.Order, item ordersource.OrderItem) (bool, error) {
	rawOptions, err := json.Marshal(item.Options)
	if err != nil {
		rawOptions = []byte("[]")
	}

	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	return i.store.UpsertIngested(ctx, queue.IngestItem{
		ItemID:      item.ItemID,
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		Store:       store.Name,
		SKU:         sku,
		Quantity:    quantity,
		Color:       DeriveColor(store, item.Options),
		RawOptions:  string(rawOptions),
		BuyerNote:   buyerNote(order, item),
	})
}

func buyerNote(order ordersource.Order, item ordersource.OrderItem) string {
	if note := strings.TrimSpace(item.BuyerNote); note != "" {
		return note
	}
	if note := strings.TrimSpace(order.CustomerNotes); note != "" {
		return note
	}
	return strings.TrimSpace(order.GiftMessage)
}
