package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"stencil/internal/queue"
	"stencil/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	health := store.Health(ctx)
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.SchemaVersion != "1" {
		t.Fatalf("unexpected schema version %q", health.SchemaVersion)
	}
}

func TestUpsertIngestedIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := queue.IngestItem{
		ItemID:      "item-1",
		OrderID:     "order-1",
		OrderNumber: "100-1",
		Store:       "teststore",
		SKU:         "SKU-1",
		Quantity:    1,
		Color:       "black",
	}
	inserted, err := store.UpsertIngested(ctx, item)
	if err != nil {
		t.Fatalf("UpsertIngested: %v", err)
	}
	if !inserted {
		t.Fatal("expected first upsert to insert")
	}

	// Advance a stage-owned flag, then re-ingest the same item.
	if err := store.ApplyParseResult(ctx, "item-1", queue.ParseUpdate{
		Names: []string{"Liam"}, Parsed: true, AISucceeded: true,
	}); err != nil {
		t.Fatalf("ApplyParseResult: %v", err)
	}

	item.Quantity = 2
	inserted, err = store.UpsertIngested(ctx, item)
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if inserted {
		t.Fatal("expected second upsert to update, not insert")
	}

	fetched, err := store.GetByItemID(ctx, "item-1")
	if err != nil {
		t.Fatalf("GetByItemID: %v", err)
	}
	if fetched.Quantity != 2 {
		t.Fatalf("expected refreshed quantity 2, got %d", fetched.Quantity)
	}
	if !fetched.Parsed || !fetched.AISucceeded {
		t.Fatal("re-ingest must not clear stage-owned flags")
	}
	if len(fetched.Names) != 1 || fetched.Names[0] != "Liam" {
		t.Fatalf("re-ingest must not clear names, got %v", fetched.Names)
	}
}

func TestParseFailureCountsAgainstRetryBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "retry")

	const attemptLimit = 3
	for i := 0; i < attemptLimit; i++ {
		pending, err := store.UnparsedItems(ctx, attemptLimit, 0)
		if err != nil {
			t.Fatalf("UnparsedItems: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("attempt %d: expected 1 pending item, got %d", i, len(pending))
		}
		if err := store.RecordParseFailure(ctx, "item-retry", "garbled"); err != nil {
			t.Fatalf("RecordParseFailure: %v", err)
		}
	}

	pending, err := store.UnparsedItems(ctx, attemptLimit, 0)
	if err != nil {
		t.Fatalf("UnparsedItems after exhaustion: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending items after %d failures, got %d", attemptLimit, len(pending))
	}

	review, err := store.ManualReviewItems(ctx, attemptLimit)
	if err != nil {
		t.Fatalf("ManualReviewItems: %v", err)
	}
	if len(review) != 1 || review[0].ItemID != "item-retry" {
		t.Fatalf("expected exhausted item in manual review, got %d items", len(review))
	}
}

func TestSyncOrderHoldsCoversSiblings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedOrderItems(t, store, "hold", 3)

	if err := store.SyncOrderHolds(ctx, "order-hold", true, false); err != nil {
		t.Fatalf("SyncOrderHolds: %v", err)
	}

	items, err := store.ListByOrderID(ctx, "order-hold")
	if err != nil {
		t.Fatalf("ListByOrderID: %v", err)
	}
	for _, item := range items {
		if !item.ProofRequested {
			t.Fatalf("expected proof hold on %s", item.ItemID)
		}
		if item.CustomRequest {
			t.Fatalf("unexpected custom hold on %s", item.ItemID)
		}
	}
}

func TestArtworkEligibilityExcludesHeldAndGenerated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, suffix := range []string{"a", "b", "c"} {
		testsupport.SeedItem(t, store, suffix)
		if err := store.ApplyParseResult(ctx, "item-"+suffix, queue.ParseUpdate{
			Names: []string{"Liam"}, Parsed: true, AISucceeded: true,
		}); err != nil {
			t.Fatalf("ApplyParseResult: %v", err)
		}
	}

	if err := store.SyncOrderHolds(ctx, "order-b", false, true); err != nil {
		t.Fatalf("SyncOrderHolds: %v", err)
	}
	if err := store.ApplyArtworkResult(ctx, "item-c", queue.ArtworkUpdate{
		Generated: true, Succeeded: true, OutputFilename: "c.pdf",
	}); err != nil {
		t.Fatalf("ApplyArtworkResult: %v", err)
	}

	eligible, err := store.ArtworkEligibleItems(ctx, 0)
	if err != nil {
		t.Fatalf("ArtworkEligibleItems: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ItemID != "item-a" {
		t.Fatalf("expected only item-a eligible, got %d items", len(eligible))
	}
}

func TestArtworkFailureBlocksNestingButSurfacesForReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "fail")
	if err := store.ApplyParseResult(ctx, "item-fail", queue.ParseUpdate{
		Names: []string{"Liam"}, Parsed: true, AISucceeded: true,
	}); err != nil {
		t.Fatalf("ApplyParseResult: %v", err)
	}
	if err := store.ApplyArtworkResult(ctx, "item-fail", queue.ArtworkUpdate{
		Generated: true, Succeeded: false, GenerationErr: "driver exited 1",
	}); err != nil {
		t.Fatalf("ApplyArtworkResult: %v", err)
	}

	// Not eligible for regeneration, not eligible for nesting.
	eligible, err := store.ArtworkEligibleItems(ctx, 0)
	if err != nil {
		t.Fatalf("ArtworkEligibleItems: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("failed item must not regenerate automatically, got %d eligible", len(eligible))
	}
	nestable, err := store.NestingEligibleItems(ctx)
	if err != nil {
		t.Fatalf("NestingEligibleItems: %v", err)
	}
	if len(nestable) != 0 {
		t.Fatalf("failed item must not nest, got %d eligible", len(nestable))
	}

	review, err := store.ManualReviewItems(ctx, 3)
	if err != nil {
		t.Fatalf("ManualReviewItems: %v", err)
	}
	if len(review) != 1 || review[0].GenerationError != "driver exited 1" {
		t.Fatalf("expected failed item in review, got %#v", review)
	}

	// Operator reset makes it eligible again.
	if err := store.ResetArtwork(ctx, "item-fail"); err != nil {
		t.Fatalf("ResetArtwork: %v", err)
	}
	eligible, err = store.ArtworkEligibleItems(ctx, 0)
	if err != nil {
		t.Fatalf("ArtworkEligibleItems after reset: %v", err)
	}
	if len(eligible) != 1 {
		t.Fatalf("expected item eligible after reset, got %d", len(eligible))
	}
}

func TestNestingEligibleOrderIsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Ingest out of order; eligibility must come back sorted.
	for _, suffix := range []string{"9", "3", "5"} {
		testsupport.SeedItem(t, store, suffix)
		if err := store.ApplyParseResult(ctx, "item-"+suffix, queue.ParseUpdate{
			Names: []string{"Liam"}, Parsed: true, AISucceeded: true,
		}); err != nil {
			t.Fatalf("ApplyParseResult: %v", err)
		}
		if err := store.ApplyArtworkResult(ctx, "item-"+suffix, queue.ArtworkUpdate{
			Generated: true, Succeeded: true, OutputFilename: suffix + ".pdf",
		}); err != nil {
			t.Fatalf("ApplyArtworkResult: %v", err)
		}
	}

	eligible, err := store.NestingEligibleItems(ctx)
	if err != nil {
		t.Fatalf("NestingEligibleItems: %v", err)
	}
	want := []string{"item-3", "item-5", "item-9"}
	if len(eligible) != len(want) {
		t.Fatalf("expected %d eligible, got %d", len(want), len(eligible))
	}
	for i, item := range eligible {
		if item.ItemID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], item.ItemID)
		}
	}
}

func TestMarkNestedUpdatesWholeGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	items := testsupport.SeedOrderItems(t, store, "sheet", 3)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}

	if err := store.MarkNested(ctx, "sheet-001", ids); err != nil {
		t.Fatalf("MarkNested: %v", err)
	}

	for _, id := range ids {
		item, err := store.GetByItemID(ctx, id)
		if err != nil {
			t.Fatalf("GetByItemID: %v", err)
		}
		if !item.Nested || item.SheetID != "sheet-001" {
			t.Fatalf("expected %s nested on sheet-001, got nested=%v sheet=%q", id, item.Nested, item.SheetID)
		}
	}
}

func TestReconcileScopeMarksAbsentShipped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "open")
	testsupport.SeedItem(t, store, "gone")
	testsupport.SeedItem(t, store, "kept")
	if err := store.SetOrderKeep(ctx, "order-kept", true); err != nil {
		t.Fatalf("SetOrderKeep: %v", err)
	}

	shipped, reactivated, err := store.ReconcileScope(ctx, "teststore", "SKU-1", []string{"item-open"})
	if err != nil {
		t.Fatalf("ReconcileScope: %v", err)
	}
	if shipped != 1 || reactivated != 0 {
		t.Fatalf("expected 1 shipped, 0 reactivated; got %d, %d", shipped, reactivated)
	}

	gone, _ := store.GetByItemID(ctx, "item-gone")
	if !gone.Shipped {
		t.Fatal("absent item must be marked shipped")
	}
	kept, _ := store.GetByItemID(ctx, "item-kept")
	if kept.Shipped {
		t.Fatal("keep-flagged order must survive reconciliation")
	}
	open, _ := store.GetByItemID(ctx, "item-open")
	if open.Shipped {
		t.Fatal("open item must stay active")
	}
}

func TestReconcileScopeReactivatesReturningItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "back")
	if _, _, err := store.ReconcileScope(ctx, "teststore", "SKU-1", nil); err != nil {
		t.Fatalf("ReconcileScope ship: %v", err)
	}
	item, _ := store.GetByItemID(ctx, "item-back")
	if !item.Shipped {
		t.Fatal("expected item shipped when absent")
	}

	shipped, reactivated, err := store.ReconcileScope(ctx, "teststore", "SKU-1", []string{"item-back"})
	if err != nil {
		t.Fatalf("ReconcileScope revive: %v", err)
	}
	if shipped != 0 || reactivated != 1 {
		t.Fatalf("expected 0 shipped, 1 reactivated; got %d, %d", shipped, reactivated)
	}
	item, _ = store.GetByItemID(ctx, "item-back")
	if item.Shipped {
		t.Fatal("returning item must be reactivated")
	}
}

func TestReconcileScopeIgnoresOtherScopes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "scoped")
	other := queue.IngestItem{
		ItemID:      "item-other",
		OrderID:     "order-other",
		OrderNumber: "200-1",
		Store:       "otherstore",
		SKU:         "SKU-9",
	}
	if _, err := store.UpsertIngested(ctx, other); err != nil {
		t.Fatalf("UpsertIngested: %v", err)
	}

	if _, _, err := store.ReconcileScope(ctx, "teststore", "SKU-1", nil); err != nil {
		t.Fatalf("ReconcileScope: %v", err)
	}

	item, _ := store.GetByItemID(ctx, "item-other")
	if item.Shipped {
		t.Fatal("reconciliation must not cross store/SKU scope")
	}
}

func TestReadyOrdersRequireEveryItemFinished(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedOrderItems(t, store, "ready", 2)
	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("item-ready-%d", i)
		if err := store.ApplyParseResult(ctx, id, queue.ParseUpdate{
			Names: []string{"Liam"}, Parsed: true, AISucceeded: true,
		}); err != nil {
			t.Fatalf("ApplyParseResult: %v", err)
		}
		if err := store.ApplyArtworkResult(ctx, id, queue.ArtworkUpdate{
			Generated: true, Succeeded: true, OutputFilename: id + ".pdf",
		}); err != nil {
			t.Fatalf("ApplyArtworkResult: %v", err)
		}
	}

	testsupport.SeedOrderItems(t, store, "partial", 2)
	if err := store.ApplyParseResult(ctx, "item-partial-0", queue.ParseUpdate{
		Names: []string{"Emma"}, Parsed: true, AISucceeded: true,
	}); err != nil {
		t.Fatalf("ApplyParseResult: %v", err)
	}
	if err := store.ApplyArtworkResult(ctx, "item-partial-0", queue.ArtworkUpdate{
		Generated: true, Succeeded: true,
	}); err != nil {
		t.Fatalf("ApplyArtworkResult: %v", err)
	}

	ready, err := store.ReadyOrders(ctx)
	if err != nil {
		t.Fatalf("ReadyOrders: %v", err)
	}
	if len(ready) != 1 || ready[0] != "order-ready" {
		t.Fatalf("expected only order-ready, got %v", ready)
	}
}

func TestTagAppliedIsMonotonic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "tag")
	if err := store.ApplyParseResult(ctx, "item-tag", queue.ParseUpdate{
		Names: []string{"Liam"}, Parsed: true, AISucceeded: true,
	}); err != nil {
		t.Fatalf("ApplyParseResult: %v", err)
	}
	if err := store.ApplyArtworkResult(ctx, "item-tag", queue.ArtworkUpdate{
		Generated: true, Succeeded: true,
	}); err != nil {
		t.Fatalf("ApplyArtworkResult: %v", err)
	}

	if err := store.MarkOrderTagged(ctx, "order-tag"); err != nil {
		t.Fatalf("MarkOrderTagged: %v", err)
	}

	ready, err := store.ReadyOrders(ctx)
	if err != nil {
		t.Fatalf("ReadyOrders: %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("tagged order must not reappear as ready, got %v", ready)
	}

	// Later stage writes must not clear the flag.
	if err := store.ApplyArtworkResult(ctx, "item-tag", queue.ArtworkUpdate{
		Generated: true, Succeeded: true, OutputFilename: "tag.pdf",
	}); err != nil {
		t.Fatalf("ApplyArtworkResult: %v", err)
	}
	item, _ := store.GetByItemID(ctx, "item-tag")
	if !item.TagApplied {
		t.Fatal("tag_applied must stay set")
	}
}

func TestInterventionOrdersCoverHoldsAndFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "proof")
	if err := store.SyncOrderHolds(ctx, "order-proof", true, false); err != nil {
		t.Fatalf("SyncOrderHolds: %v", err)
	}

	testsupport.SeedItem(t, store, "exhausted")
	for i := 0; i < 3; i++ {
		if err := store.RecordParseFailure(ctx, "item-exhausted", "bad"); err != nil {
			t.Fatalf("RecordParseFailure: %v", err)
		}
	}

	testsupport.SeedItem(t, store, "clean")

	orders, err := store.InterventionOrders(ctx, 3)
	if err != nil {
		t.Fatalf("InterventionOrders: %v", err)
	}
	want := []string{"order-exhausted", "order-proof"}
	if len(orders) != len(want) {
		t.Fatalf("expected %v, got %v", want, orders)
	}
	for i := range want {
		if orders[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, orders)
		}
	}
}

func TestNextJobNumberIsUniquePerStationMaterial(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := store.NextJobNumber(ctx, "laser-1", "birch-3mm")
	if err != nil {
		t.Fatalf("NextJobNumber: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first number 1, got %d", first)
	}

	second, err := store.NextJobNumber(ctx, "laser-1", "birch-3mm")
	if err != nil {
		t.Fatalf("NextJobNumber: %v", err)
	}
	if second != 2 {
		t.Fatalf("expected second number 2, got %d", second)
	}

	otherMaterial, err := store.NextJobNumber(ctx, "laser-1", "walnut-3mm")
	if err != nil {
		t.Fatalf("NextJobNumber: %v", err)
	}
	if otherMaterial != 1 {
		t.Fatalf("expected independent counter per material, got %d", otherMaterial)
	}
}

func TestNextJobNumberUnderConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const workers = 8
	numbers := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			number, err := store.NextJobNumber(ctx, "laser-1", "birch-3mm")
			if err != nil {
				t.Errorf("NextJobNumber: %v", err)
				return
			}
			numbers[slot] = number
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]struct{}, workers)
	for _, number := range numbers {
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate job number %d", number)
		}
		seen[number] = struct{}{}
	}
}

func TestInsertJobRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.InsertJob(ctx, &queue.ProductionJob{
		JobCode:    "STN-LASER1-BIRCH3MM-0001",
		StationID:  "laser-1",
		MaterialID: "birch-3mm",
		JobNumber:  1,
		SheetID:    "sheet-001",
		ItemIDs:    []string{"item-a", "item-b"},
		OrderIDs:   []string{"order-a"},
	})
	if err != nil {
		t.Fatalf("InsertJob: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID assigned")
	}

	if err := store.SetJobTracking(ctx, job.JobCode, "trk-42"); err != nil {
		t.Fatalf("SetJobTracking: %v", err)
	}
	fetched, err := store.GetJobByCode(ctx, job.JobCode)
	if err != nil {
		t.Fatalf("GetJobByCode: %v", err)
	}
	if fetched.TrackingJobID != "trk-42" {
		t.Fatalf("expected tracking id recorded, got %q", fetched.TrackingJobID)
	}
	if len(fetched.ItemIDs) != 2 {
		t.Fatalf("expected 2 item ids, got %v", fetched.ItemIDs)
	}
}

func TestSummaryCountsGates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "s1")
	testsupport.SeedItem(t, store, "s2")
	if err := store.ApplyParseResult(ctx, "item-s2", queue.ParseUpdate{
		Names: []string{"Liam"}, Parsed: true, AISucceeded: true,
	}); err != nil {
		t.Fatalf("ApplyParseResult: %v", err)
	}

	summary, err := store.Summary(ctx, 3)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("expected 2 items, got %d", summary.Total)
	}
	if summary.AwaitingParse != 1 {
		t.Fatalf("expected 1 awaiting parse, got %d", summary.AwaitingParse)
	}
	if summary.AwaitingArtwork != 1 {
		t.Fatalf("expected 1 awaiting artwork, got %d", summary.AwaitingArtwork)
	}
}
