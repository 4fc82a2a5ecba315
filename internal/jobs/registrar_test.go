package jobs_test

import (
	"context"
	"errors"
	"testing"

	"stencil/internal/config"
	"stencil/internal/jobs"
	"stencil/internal/logging"
	"stencil/internal/notifications"
	"stencil/internal/queue"
	"stencil/internal/services/tracking"
	"stencil/internal/testsupport"
)

type fakeTracker struct {
	id       string
	err      error
	requests []tracking.JobRequest
}

func (f *fakeTracker) CreateJob(_ context.Context, request tracking.JobRequest) (string, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type refCall struct {
	orderID  string
	field    string
	existing string
	value    string
}

type fakeSource struct {
	calls []refCall
	err   error
}

func (f *fakeSource) AppendReference(_ context.Context, orderID, field, existing, value string) error {
	f.calls = append(f.calls, refCall{orderID: orderID, field: field, existing: existing, value: value})
	return f.err
}

func seedSheet(t *testing.T, store *queue.Store, sheetID string, suffixes ...string) {
	t.Helper()
	var itemIDs []string
	for _, suffix := range suffixes {
		testsupport.SeedItem(t, store, suffix)
		itemIDs = append(itemIDs, "item-"+suffix)
	}
	if err := store.MarkNested(context.Background(), sheetID, itemIDs); err != nil {
		t.Fatalf("MarkNested: %v", err)
	}
}

func newRegistrar(cfg *config.Config, store *queue.Store, tracker jobs.Tracker, source jobs.ReferenceWriter) *jobs.Registrar {
	return jobs.NewRegistrarWithDependencies(cfg, store, logging.NewNop(), tracker, source, notifications.NewService(cfg))
}

func TestRegisterResolvesMembersFromSheet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedSheet(t, store, "sheet-x", "a", "b")

	tracker := &fakeTracker{id: "trk-1"}
	source := &fakeSource{}
	registrar := newRegistrar(cfg, store, tracker, source)

	job, err := registrar.Register(context.Background(), jobs.SheetDescription{
		SheetID:    "sheet-x",
		StationID:  "laser 1",
		MaterialID: "oak",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if job.JobCode != "STN-LASER1-OAK-0001" {
		t.Fatalf("unexpected job code %q", job.JobCode)
	}
	if len(job.ItemIDs) != 2 || len(job.OrderIDs) != 2 {
		t.Fatalf("unexpected membership %#v", job)
	}
	if !job.Notified || job.TrackingJobID != "trk-1" {
		t.Fatalf("expected tracking follow-up recorded, got %#v", job)
	}

	if len(tracker.requests) != 1 || tracker.requests[0].SheetID != "sheet-x" {
		t.Fatalf("unexpected tracking requests %#v", tracker.requests)
	}
	if len(source.calls) != 2 {
		t.Fatalf("expected one reference write per order, got %d", len(source.calls))
	}
	for _, call := range source.calls {
		if call.field != "customField1" || call.value != job.JobCode {
			t.Fatalf("unexpected reference call %#v", call)
		}
	}
}

func TestRegisterAllocatesSequentialNumbersPerScope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedSheet(t, store, "sheet-1", "s1")
	seedSheet(t, store, "sheet-2", "s2")
	seedSheet(t, store, "sheet-3", "s3")

	registrar := newRegistrar(cfg, store, &fakeTracker{id: "trk"}, &fakeSource{})
	ctx := context.Background()

	first, err := registrar.Register(ctx, jobs.SheetDescription{SheetID: "sheet-1", StationID: "L1", MaterialID: "OAK"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	second, err := registrar.Register(ctx, jobs.SheetDescription{SheetID: "sheet-2", StationID: "L1", MaterialID: "OAK"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	other, err := registrar.Register(ctx, jobs.SheetDescription{SheetID: "sheet-3", StationID: "L1", MaterialID: "WALNUT"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if first.JobNumber != 1 || second.JobNumber != 2 {
		t.Fatalf("scope numbering broken: %d then %d", first.JobNumber, second.JobNumber)
	}
	if other.JobNumber != 1 {
		t.Fatalf("new material scope must start at 1, got %d", other.JobNumber)
	}
}

func TestTrackingFailureKeepsLocalJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedSheet(t, store, "sheet-f", "f")
	ctx := context.Background()

	broken := &fakeTracker{err: errors.New("tracking down")}
	registrar := newRegistrar(cfg, store, broken, &fakeSource{})

	job, err := registrar.Register(ctx, jobs.SheetDescription{SheetID: "sheet-f", StationID: "L1", MaterialID: "OAK"})
	if err != nil {
		t.Fatalf("Register must not fail on tracking errors: %v", err)
	}
	if job.Notified || job.TrackingJobID != "" {
		t.Fatalf("tracking must not be recorded on failure, got %#v", job)
	}

	stored, err := store.GetJobByCode(ctx, job.JobCode)
	if err != nil || stored == nil {
		t.Fatalf("job must be persisted locally: %v", err)
	}

	// After the outage clears the job can be re-posted.
	recovered := newRegistrar(cfg, store, &fakeTracker{id: "trk-late"}, &fakeSource{})
	if err := recovered.RetryTracking(ctx, job.JobCode); err != nil {
		t.Fatalf("RetryTracking: %v", err)
	}
	stored, _ = store.GetJobByCode(ctx, job.JobCode)
	if !stored.Notified || stored.TrackingJobID != "trk-late" {
		t.Fatalf("expected retry to record tracking, got %#v", stored)
	}
}

func TestReferenceAccumulatesAcrossJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// One order whose items land on two different sheets over time.
	items := testsupport.SeedOrderItems(t, store, "multi", 2)
	if err := store.MarkNested(ctx, "sheet-m1", []string{items[0].ItemID}); err != nil {
		t.Fatalf("MarkNested: %v", err)
	}
	if err := store.MarkNested(ctx, "sheet-m2", []string{items[1].ItemID}); err != nil {
		t.Fatalf("MarkNested: %v", err)
	}

	source := &fakeSource{}
	registrar := newRegistrar(cfg, store, &fakeTracker{id: "trk"}, source)

	first, err := registrar.Register(ctx, jobs.SheetDescription{SheetID: "sheet-m1", StationID: "L1", MaterialID: "OAK"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := registrar.Register(ctx, jobs.SheetDescription{SheetID: "sheet-m2", StationID: "L1", MaterialID: "OAK"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if len(source.calls) != 2 {
		t.Fatalf("expected two reference writes, got %d", len(source.calls))
	}
	if source.calls[0].existing != "" {
		t.Fatalf("first job has no prior codes, got %q", source.calls[0].existing)
	}
	if source.calls[1].existing != first.JobCode {
		t.Fatalf("second job must append after %q, got existing %q", first.JobCode, source.calls[1].existing)
	}
}

func TestRegisterRejectsMissingScope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	registrar := newRegistrar(cfg, store, &fakeTracker{}, &fakeSource{})
	if _, err := registrar.Register(context.Background(), jobs.SheetDescription{SheetID: "sheet-x"}); err == nil {
		t.Fatal("expected validation error for missing station and material")
	}
}

func TestJobCodeIsBarcodeSafe(t *testing.T) {
	code := jobs.JobCode("stn", "LASER1", "OAK", 7)
	if code != "STN-LASER1-OAK-0007" {
		t.Fatalf("unexpected code %q", code)
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '-' {
			t.Fatalf("code contains unsafe rune %q", r)
		}
	}
}
