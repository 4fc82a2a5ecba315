package artwork_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"stencil/internal/artwork"
	"stencil/internal/config"
	"stencil/internal/logging"
	"stencil/internal/notifications"
	"stencil/internal/queue"
	"stencil/internal/testsupport"
)

type fakeDriver struct {
	cfg     *config.Config
	fail    error
	written []artwork.Document
}

func (f *fakeDriver) Generate(context.Context) error {
	raw, err := os.ReadFile(f.cfg.Artwork.HandoffPath)
	if err != nil {
		return err
	}
	var doc artwork.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	f.written = append(f.written, doc)
	if f.fail != nil {
		return f.fail
	}
	artifact := filepath.Join(f.cfg.Paths.ArtworkDir, doc.Filename)
	return os.WriteFile(artifact, []byte("pdf"), 0o644)
}

func (f *fakeDriver) Available() error { return nil }

func seedEligible(t *testing.T, store *queue.Store, suffix string, names []string, year string) {
	t.Helper()
	testsupport.SeedItem(t, store, suffix)
	if err := store.ApplyParseResult(context.Background(), "item-"+suffix, queue.ParseUpdate{
		Names: names, Year: year, Parsed: true, AISucceeded: true,
	}); err != nil {
		t.Fatalf("ApplyParseResult: %v", err)
	}
}

func TestRunGeneratesArtifactAndRecordsFilename(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	seedEligible(t, store, "gen", []string{"Liam", "Emma"}, "2024")

	driver := &fakeDriver{cfg: cfg}
	gen := artwork.NewGeneratorWithDependencies(cfg, store, logging.NewNop(), driver, notifications.NewService(cfg))
	summary, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("expected success, got %#v", summary)
	}

	item, _ := store.GetByItemID(context.Background(), "item-gen")
	if !item.ArtworkGenerated || !item.ArtworkSucceeded {
		t.Fatalf("expected artwork flags set, got %#v", item)
	}
	if item.OutputFilename != "100-gen_item-gen.pdf" {
		t.Fatalf("unexpected output filename %q", item.OutputFilename)
	}

	if len(driver.written) != 1 {
		t.Fatalf("expected one handoff, got %d", len(driver.written))
	}
	doc := driver.written[0]
	if doc.Year == nil || *doc.Year != "2024" {
		t.Fatalf("unexpected year in handoff: %#v", doc)
	}
	if doc.LayerName != "3" {
		t.Fatalf("layer name must count names plus year, got %q", doc.LayerName)
	}
}

func TestRunDriverFailureRecordsErrorWithoutRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	seedEligible(t, store, "bad", []string{"Liam"}, "2024")

	driver := &fakeDriver{cfg: cfg, fail: errors.New("driver exploded")}
	gen := artwork.NewGeneratorWithDependencies(cfg, store, logging.NewNop(), driver, notifications.NewService(cfg))
	summary, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected failure, got %#v", summary)
	}

	item, _ := store.GetByItemID(context.Background(), "item-bad")
	if !item.ArtworkGenerated || item.ArtworkSucceeded {
		t.Fatalf("failure must still mark generated, got %#v", item)
	}
	if item.GenerationError == "" {
		t.Fatal("expected generation error recorded")
	}

	// Second pass must not pick the failed item up again.
	summary, err = gen.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Examined != 0 {
		t.Fatalf("failed item must not be retried, got %#v", summary)
	}
}

func TestRunRejectsTooManyNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Artwork.MaxNames = 2
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	seedEligible(t, store, "many", []string{"A", "B", "C"}, "2024")

	driver := &fakeDriver{cfg: cfg}
	gen := artwork.NewGeneratorWithDependencies(cfg, store, logging.NewNop(), driver, notifications.NewService(cfg))
	summary, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected failure, got %#v", summary)
	}
	if len(driver.written) != 0 {
		t.Fatal("driver must not run for oversized name lists")
	}

	item, _ := store.GetByItemID(context.Background(), "item-many")
	if item.GenerationError == "" {
		t.Fatal("expected generation error recorded")
	}
}

func TestNewDocumentOmitsYearWhenEmpty(t *testing.T) {
	doc := artwork.NewDocument([]string{"Liam"}, "", "x.pdf")
	if doc.Year != nil {
		t.Fatalf("expected nil year, got %v", doc.Year)
	}
	if doc.LayerName != "1" {
		t.Fatalf("unexpected layer name %q", doc.LayerName)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `{"names":["Liam"],"year":null,"filename":"x.pdf","layerName":"1"}` {
		t.Fatalf("handoff schema drifted: %s", encoded)
	}
}
