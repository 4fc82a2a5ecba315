package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared across stages.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	ArtworkDir string `toml:"artwork_dir"`
	SheetDir   string `toml:"sheet_dir"`
}

// Store describes one marketplace storefront scope polled during ingestion.
// SKUs narrow the fetch to the personalizable products handled by this
// pipeline; ColorMap translates the store's raw option strings into the
// normalized palette used for nesting.
type Store struct {
	Name             string            `toml:"name"`
	SKUs             []string          `toml:"skus"`
	ColorMap         map[string]string `toml:"color_map"`
	ColorOptionNames []string          `toml:"color_option_names"`
	DefaultColor     string            `toml:"default_color"`
}

// OrderSource contains configuration for the upstream order API.
type OrderSource struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	PartnerKey     string  `toml:"partner_key"`
	RequestTimeout int     `toml:"request_timeout"`
	ExcludedTagIDs []int64 `toml:"excluded_tag_ids"`
}

// AI contains connection settings for the personalization text service.
type AI struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	DefaultYear    string `toml:"default_year"`
	AttemptLimit   int    `toml:"attempt_limit"`
}

// Artwork contains configuration for the document-automation driver that
// renders single-item artwork from handoff documents.
type Artwork struct {
	DriverPath      string   `toml:"driver_path"`
	DriverArgs      []string `toml:"driver_args"`
	HandoffPath     string   `toml:"handoff_path"`
	TimeoutSeconds  int      `toml:"timeout_seconds"`
	SettleSeconds   int      `toml:"settle_seconds"`
	MaxNames        int      `toml:"max_names"`
	MinFreeSpaceGiB int      `toml:"min_free_space_gib"`
}

// Nesting contains configuration for sheet packing.
type Nesting struct {
	SheetCapacity   int    `toml:"sheet_capacity"`
	HandoffPath     string `toml:"handoff_path"`
	MixedColorLabel string `toml:"mixed_color_label"`
}

// Jobs contains configuration for production job registration.
type Jobs struct {
	TrackingBaseURL string `toml:"tracking_base_url"`
	TrackingAPIKey  string `toml:"tracking_api_key"`
	RequestTimeout  int    `toml:"request_timeout"`
	ReferenceField  string `toml:"reference_field"`
	CodePrefix      string `toml:"code_prefix"`
}

// Tags contains the order-source tag identifiers applied by the sync stage.
type Tags struct {
	ReadyTagID         int64 `toml:"ready_tag_id"`
	RoutingTagID       int64 `toml:"routing_tag_id"`
	InterventionTagID  int64 `toml:"intervention_tag_id"`
	RateLimitThreshold int   `toml:"rate_limit_threshold"`
}

// Workflow contains stage scheduling intervals, in seconds.
type Workflow struct {
	IngestInterval     int `toml:"ingest_interval"`
	ResolveInterval    int `toml:"resolve_interval"`
	ArtworkInterval    int `toml:"artwork_interval"`
	NestingInterval    int `toml:"nesting_interval"`
	TagSyncInterval    int `toml:"tag_sync_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	BatchLimit         int `toml:"batch_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Ingest         bool   `toml:"ingest"`
	Review         bool   `toml:"review"`
	Sheets         bool   `toml:"sheets"`
	Jobs           bool   `toml:"jobs"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for Stencil.
//
// Configuration sections by subsystem:
//   - Paths: data, log, artwork, and sheet directories
//   - OrderSource: upstream order API connection and fetch filters
//   - Stores: per-storefront SKU scopes and color mappings
//   - AI: personalization text service connection
//   - Artwork: document-automation driver handoff settings
//   - Nesting: sheet capacity and color bucket settings
//   - Jobs: production tracking API and job numbering
//   - Tags: order-source tag identifiers for the sync stage
//   - Workflow: stage intervals and batch limits
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	OrderSource   OrderSource   `toml:"order_source"`
	Stores        []Store       `toml:"stores"`
	AI            AI            `toml:"ai"`
	Artwork       Artwork       `toml:"artwork"`
	Nesting       Nesting       `toml:"nesting"`
	Jobs          Jobs          `toml:"jobs"`
	Tags          Tags          `toml:"tags"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stencil/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/stencil/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stencil.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// ArtworkDir is created on a best-effort basis so the daemon can run when
// the shared artwork storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.SheetDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ArtworkDir) != "" {
		_ = os.MkdirAll(c.Paths.ArtworkDir, 0o755)
	}
	return nil
}

// StoreByName returns the store configuration matching name.
func (c *Config) StoreByName(name string) (Store, bool) {
	for _, store := range c.Stores {
		if strings.EqualFold(strings.TrimSpace(store.Name), strings.TrimSpace(name)) {
			return store, true
		}
	}
	return Store{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
