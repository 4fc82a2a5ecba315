package testsupport

import (
	"path/filepath"
	"testing"

	"stencil/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ArtworkDir = filepath.Join(base, "artwork")
	cfgVal.Paths.SheetDir = filepath.Join(base, "sheets")
	cfgVal.OrderSource.BaseURL = "http://127.0.0.1:0"
	cfgVal.OrderSource.APIKey = "test-key"
	cfgVal.OrderSource.PartnerKey = "test-partner"
	cfgVal.AI.APIKey = "test-ai"
	cfgVal.Jobs.TrackingAPIKey = "test-tracking"
	cfgVal.Stores = []config.Store{
		{
			Name:         "teststore",
			SKUs:         []string{"SKU-1"},
			ColorMap:     map[string]string{"black": "ST-BLACK", "walnut": "ST-WALNUT"},
			DefaultColor: "black",
		},
	}
	cfgVal.Artwork.HandoffPath = filepath.Join(base, "data", "artwork_jobs.json")
	cfgVal.Nesting.HandoffPath = filepath.Join(base, "data", "sheet_jobs.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStore replaces the store list on the test config.
func WithStore(stores ...config.Store) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Stores = stores
	}
}

// WithOrderSourceURL points the order source client at the given base URL.
func WithOrderSourceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OrderSource.BaseURL = url
	}
}

// WithAIBaseURL points the AI client at the given base URL.
func WithAIBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AI.BaseURL = url
	}
}

// WithTrackingURL points the tracking client at the given base URL.
func WithTrackingURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jobs.TrackingBaseURL = url
	}
}

// WithSheetCapacity overrides the nesting sheet capacity.
func WithSheetCapacity(capacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Nesting.SheetCapacity = capacity
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
