package jobs

import (
	"context"
	"strings"

	"log/slog"

	"stencil/internal/config"
	"stencil/internal/logging"
	"stencil/internal/notifications"
	"stencil/internal/queue"
	"stencil/internal/services"
	"stencil/internal/services/ordersource"
	"stencil/internal/services/tracking"
)

// Tracker posts registered jobs to the external production tracking API.
type Tracker interface {
	CreateJob(ctx context.Context, request tracking.JobRequest) (string, error)
}

// ReferenceWriter republishes job identifiers onto order-source records.
type ReferenceWriter interface {
	AppendReference(ctx context.Context, orderID, field, existing, value string) error
}

// SheetDescription is the operator-confirmed input for job registration.
// ItemIDs may be left empty, in which case the sheet's nested members
// are looked up from the queue.
type SheetDescription struct {
	SheetID    string
	StationID  string
	MaterialID string
	ItemIDs    []string
}

// Registrar converts a confirmed sheet into a numbered production job.
type Registrar struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	tracker  Tracker
	source   ReferenceWriter
	notifier notifications.Service
}

// NewRegistrar constructs the registrar using default dependencies.
func NewRegistrar(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Registrar {
	tracker := tracking.NewClient(tracking.Config{
		BaseURL:        cfg.Jobs.TrackingBaseURL,
		APIKey:         cfg.Jobs.TrackingAPIKey,
		TimeoutSeconds: cfg.Jobs.RequestTimeout,
	})
	source := ordersource.NewClient(ordersource.Config{
		BaseURL:        cfg.OrderSource.BaseURL,
		APIKey:         cfg.OrderSource.APIKey,
		PartnerKey:     cfg.OrderSource.PartnerKey,
		TimeoutSeconds: cfg.OrderSource.RequestTimeout,
	})
	return NewRegistrarWithDependencies(cfg, store, logger, tracker, source, notifications.NewService(cfg))
}

// NewRegistrarWithDependencies allows injecting collaborators (used in tests).
func NewRegistrarWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, tracker Tracker, source ReferenceWriter, notifier notifications.Service) *Registrar {
	registrarLogger := logger
	if registrarLogger != nil {
		registrarLogger = registrarLogger.With(logging.String(logging.FieldComponent, "jobs"))
	}
	return &Registrar{store: store, cfg: cfg, logger: registrarLogger, tracker: tracker, source: source, notifier: notifier}
}

// Register allocates a job number for the sheet's station and material,
// persists the job record, and then performs the best-effort follow-ups:
// posting to the tracking API and appending the job code to each touched
// order's reference field. Follow-up failures never roll back the local
// record; they are logged and can be retried later.
func (r *Registrar) Register(ctx context.Context, desc SheetDescription) (*queue.ProductionJob, error) {
	stationID := sanitizeScope(desc.StationID)
	materialID := sanitizeScope(desc.MaterialID)
	if stationID == "" || materialID == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "register",
			"Station and material identifiers are required", nil)
	}

	itemIDs, orderIDs, err := r.resolveMembers(ctx, desc)
	if err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "jobs", "register",
			"No nested items found for the described sheet", nil)
	}

	number, err := r.store.NextJobNumber(ctx, stationID, materialID)
	if err != nil {
		return nil, err
	}
	jobCode := JobCode(r.cfg.Jobs.CodePrefix, stationID, materialID, number)

	job, err := r.store.InsertJob(ctx, &queue.ProductionJob{
		JobCode:    jobCode,
		StationID:  stationID,
		MaterialID: materialID,
		JobNumber:  number,
		SheetID:    desc.SheetID,
		ItemIDs:    itemIDs,
		OrderIDs:   orderIDs,
	})
	if err != nil {
		return nil, err
	}

	logger := r.logger.With(logging.String("job_code", jobCode))
	logger.Info("production job registered",
		logging.String("station_id", stationID),
		logging.String("material_id", materialID),
		logging.Int64("job_number", number),
		logging.Int("items", len(itemIDs)))

	r.postTracking(ctx, logger, job)
	r.publishReferences(ctx, logger, job)

	if err := r.notifier.NotifyJobRegistered(ctx, jobCode, len(itemIDs)); err != nil {
		logger.Warn("job notification failed", logging.Error(err))
	}
	return job, nil
}

// RetryTracking re-posts a persisted job whose tracking registration
// failed previously.
func (r *Registrar) RetryTracking(ctx context.Context, jobCode string) error {
	job, err := r.store.GetJobByCode(ctx, jobCode)
	if err != nil {
		return err
	}
	if job == nil {
		return services.Wrap(services.ErrValidation, "jobs", "retry tracking",
			"No job found with code "+jobCode, nil)
	}
	if job.Notified {
		return nil
	}

	trackingID, err := r.tracker.CreateJob(ctx, trackingRequest(job))
	if err != nil {
		return services.Wrap(services.ErrTransient, "jobs", "retry tracking",
			"Tracking API rejected the job; try again later", err)
	}
	if err := r.store.SetJobTracking(ctx, job.JobCode, trackingID); err != nil {
		return err
	}
	return r.store.MarkJobNotified(ctx, job.JobCode)
}

func (r *Registrar) resolveMembers(ctx context.Context, desc SheetDescription) ([]string, []string, error) {
	var members []*queue.WorkItem
	if len(desc.ItemIDs) > 0 {
		for _, itemID := range desc.ItemIDs {
			item, err := r.store.GetByItemID(ctx, strings.TrimSpace(itemID))
			if err != nil {
				return nil, nil, err
			}
			if item == nil {
				return nil, nil, services.Wrap(services.ErrValidation, "jobs", "register",
					"Unknown item id "+itemID, nil)
			}
			members = append(members, item)
		}
	} else {
		if strings.TrimSpace(desc.SheetID) == "" {
			return nil, nil, services.Wrap(services.ErrValidation, "jobs", "register",
				"A sheet id or explicit item list is required", nil)
		}
		var err error
		members, err = r.store.ListBySheetID(ctx, desc.SheetID)
		if err != nil {
			return nil, nil, err
		}
	}

	var itemIDs []string
	var orderIDs []string
	seenOrders := make(map[string]bool)
	for _, item := range members {
		itemIDs = append(itemIDs, item.ItemID)
		if !seenOrders[item.OrderID] {
			seenOrders[item.OrderID] = true
			orderIDs = append(orderIDs, item.OrderID)
		}
	}
	return itemIDs, orderIDs, nil
}

func (r *Registrar) postTracking(ctx context.Context, logger *slog.Logger, job *queue.ProductionJob) {
	trackingID, err := r.tracker.CreateJob(ctx, trackingRequest(job))
	if err != nil {
		logger.Error("tracking registration failed; job kept locally", logging.Error(err))
		return
	}
	if err := r.store.SetJobTracking(ctx, job.JobCode, trackingID); err != nil {
		logger.Error("persist tracking id failed", logging.Error(err))
		return
	}
	if err := r.store.MarkJobNotified(ctx, job.JobCode); err != nil {
		logger.Error("mark job notified failed", logging.Error(err))
		return
	}
	job.TrackingJobID = trackingID
	job.Notified = true
}

// publishReferences appends the job code to each touched order's custom
// reference field. The existing value is reconstructed from earlier jobs
// covering the same order, so one order spanning several jobs accumulates
// every code.
func (r *Registrar) publishReferences(ctx context.Context, logger *slog.Logger, job *queue.ProductionJob) {
	existingByOrder, err := r.priorCodes(ctx, job)
	if err != nil {
		logger.Error("load prior job codes failed", logging.Error(err))
		existingByOrder = map[string]string{}
	}

	for _, orderID := range job.OrderIDs {
		if err := r.source.AppendReference(ctx, orderID, r.cfg.Jobs.ReferenceField, existingByOrder[orderID], job.JobCode); err != nil {
			logger.Error("publish job reference failed",
				logging.String(logging.FieldOrderID, orderID),
				logging.Error(err))
		}
	}
}

func (r *Registrar) priorCodes(ctx context.Context, job *queue.ProductionJob) (map[string]string, error) {
	all, err := r.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]string, len(job.OrderIDs))
	// ListJobs returns newest first; walk backwards so codes append in
	// registration order.
	for i := len(all) - 1; i >= 0; i-- {
		prior := all[i]
		if prior.JobCode == job.JobCode {
			continue
		}
		for _, orderID := range prior.OrderIDs {
			if existing[orderID] == "" {
				existing[orderID] = prior.JobCode
			} else {
				existing[orderID] += "," + prior.JobCode
			}
		}
	}
	return existing, nil
}

func trackingRequest(job *queue.ProductionJob) tracking.JobRequest {
	return tracking.JobRequest{
		JobCode:    job.JobCode,
		StationID:  job.StationID,
		MaterialID: job.MaterialID,
		JobNumber:  job.JobNumber,
		SheetID:    job.SheetID,
		ItemIDs:    job.ItemIDs,
		OrderIDs:   job.OrderIDs,
	}
}
