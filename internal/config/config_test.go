package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stencil/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "stencil.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[order_source]
base_url = "https://orders.example.com/api"

[[stores]]
name = "main"
skus = ["ornament-classic"]
`

func TestLoadMinimalConfigAppliesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := writeConfig(t, t.TempDir(), minimalConfig)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}

	wantData := filepath.Join(tempHome, ".local", "share", "stencil", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected AI model default: %q", cfg.AI.Model)
	}
	if cfg.AI.AttemptLimit != 3 {
		t.Fatalf("unexpected attempt limit: %d", cfg.AI.AttemptLimit)
	}
	if cfg.Nesting.SheetCapacity != 12 {
		t.Fatalf("unexpected sheet capacity: %d", cfg.Nesting.SheetCapacity)
	}
	if cfg.Nesting.MixedColorLabel != "Mixed" {
		t.Fatalf("unexpected mixed label: %q", cfg.Nesting.MixedColorLabel)
	}
	if cfg.Workflow.IngestInterval != 3600 {
		t.Fatalf("unexpected ingest interval: %d", cfg.Workflow.IngestInterval)
	}
	if len(cfg.Stores) != 1 || cfg.Stores[0].Name != "main" {
		t.Fatalf("unexpected stores: %+v", cfg.Stores)
	}
	if len(cfg.Stores[0].ColorOptionNames) == 0 {
		t.Fatal("expected default color option names")
	}
}

func TestLoadHonorsEnvironmentSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ORDER_SOURCE_API_KEY", "source-key")
	t.Setenv("OPENAI_API_KEY", "ai-key")

	path := writeConfig(t, t.TempDir(), minimalConfig)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OrderSource.APIKey != "source-key" {
		t.Fatalf("expected order source key from env, got %q", cfg.OrderSource.APIKey)
	}
	if cfg.AI.APIKey != "ai-key" {
		t.Fatalf("expected AI key from env, got %q", cfg.AI.APIKey)
	}
}

func TestLoadRejectsMissingStores(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	body := `
[order_source]
base_url = "https://orders.example.com/api"
`
	path := writeConfig(t, t.TempDir(), body)
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing stores")
	}
	if !strings.Contains(err.Error(), "stores") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsMissingBaseURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	body := `
[[stores]]
name = "main"
skus = ["ornament-classic"]
`
	path := writeConfig(t, t.TempDir(), body)
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing base url")
	}
	if !strings.Contains(err.Error(), "order_source.base_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadNormalizesStoreColorMap(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	body := minimalConfig + `
[stores.color_map]
" Cherry Red " = "Red"
"forest green" = "Green"
`
	path := writeConfig(t, t.TempDir(), body)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	store := cfg.Stores[0]
	if store.ColorMap["cherry red"] != "Red" {
		t.Fatalf("expected trimmed lowered key, got %+v", store.ColorMap)
	}
	if store.ColorMap["forest green"] != "Green" {
		t.Fatalf("missing mapping: %+v", store.ColorMap)
	}
}

func TestLoadRejectsBadDefaultYear(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	body := minimalConfig + `
[ai]
default_year = "soon"
`
	path := writeConfig(t, t.TempDir(), body)
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for invalid default year")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[order_source]") {
		t.Fatal("sample missing order_source section")
	}
}
