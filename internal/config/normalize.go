package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOrderSource(); err != nil {
		return err
	}
	c.normalizeStores()
	if err := c.normalizeAI(); err != nil {
		return err
	}
	if err := c.normalizeArtwork(); err != nil {
		return err
	}
	if err := c.normalizeNesting(); err != nil {
		return err
	}
	c.normalizeJobs()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ArtworkDir, err = expandPath(c.Paths.ArtworkDir); err != nil {
		return fmt.Errorf("paths.artwork_dir: %w", err)
	}
	if c.Paths.SheetDir, err = expandPath(c.Paths.SheetDir); err != nil {
		return fmt.Errorf("paths.sheet_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOrderSource() error {
	if c.OrderSource.APIKey == "" {
		if value, ok := os.LookupEnv("ORDER_SOURCE_API_KEY"); ok {
			c.OrderSource.APIKey = strings.TrimSpace(value)
		}
	}
	if c.OrderSource.PartnerKey == "" {
		if value, ok := os.LookupEnv("ORDER_SOURCE_PARTNER_KEY"); ok {
			c.OrderSource.PartnerKey = strings.TrimSpace(value)
		}
	}
	c.OrderSource.BaseURL = strings.TrimRight(strings.TrimSpace(c.OrderSource.BaseURL), "/")
	if c.OrderSource.RequestTimeout <= 0 {
		c.OrderSource.RequestTimeout = defaultOrderRequestTimout
	}
	return nil
}

func (c *Config) normalizeStores() {
	for i := range c.Stores {
		store := &c.Stores[i]
		store.Name = strings.TrimSpace(store.Name)
		skus := make([]string, 0, len(store.SKUs))
		seen := make(map[string]struct{}, len(store.SKUs))
		for _, sku := range store.SKUs {
			trimmed := strings.TrimSpace(sku)
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			skus = append(skus, trimmed)
		}
		store.SKUs = skus
		if len(store.ColorOptionNames) == 0 {
			store.ColorOptionNames = []string{"color", "colour", "material"}
		}
		lowered := make(map[string]string, len(store.ColorMap))
		for raw, normalized := range store.ColorMap {
			key := strings.ToLower(strings.TrimSpace(raw))
			if key == "" {
				continue
			}
			lowered[key] = strings.TrimSpace(normalized)
		}
		store.ColorMap = lowered
	}
}

func (c *Config) normalizeAI() error {
	if c.AI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.AI.APIKey = strings.TrimSpace(value)
		}
	}
	c.AI.BaseURL = strings.TrimSpace(c.AI.BaseURL)
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = defaultAIBaseURL
	}
	c.AI.Model = strings.TrimSpace(c.AI.Model)
	if c.AI.Model == "" {
		c.AI.Model = defaultAIModel
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = defaultAITimeoutSeconds
	}
	c.AI.DefaultYear = strings.TrimSpace(c.AI.DefaultYear)
	if c.AI.DefaultYear == "" {
		c.AI.DefaultYear = defaultAIDefaultYear
	}
	if c.AI.AttemptLimit <= 0 {
		c.AI.AttemptLimit = defaultAIAttemptLimit
	}
	return nil
}

func (c *Config) normalizeArtwork() error {
	var err error
	if c.Artwork.DriverPath, err = expandPath(strings.TrimSpace(c.Artwork.DriverPath)); err != nil {
		return fmt.Errorf("artwork.driver_path: %w", err)
	}
	if strings.TrimSpace(c.Artwork.HandoffPath) == "" {
		c.Artwork.HandoffPath = c.Paths.DataDir + "/artwork_handoff.json"
	}
	if c.Artwork.HandoffPath, err = expandPath(c.Artwork.HandoffPath); err != nil {
		return fmt.Errorf("artwork.handoff_path: %w", err)
	}
	if c.Artwork.TimeoutSeconds <= 0 {
		c.Artwork.TimeoutSeconds = defaultArtworkTimeout
	}
	if c.Artwork.SettleSeconds < 0 {
		c.Artwork.SettleSeconds = defaultArtworkSettle
	}
	if c.Artwork.MaxNames <= 0 {
		c.Artwork.MaxNames = defaultMaxNames
	}
	if c.Artwork.MinFreeSpaceGiB < 0 {
		c.Artwork.MinFreeSpaceGiB = defaultMinFreeSpaceGiB
	}
	return nil
}

func (c *Config) normalizeNesting() error {
	var err error
	if c.Nesting.SheetCapacity <= 0 {
		c.Nesting.SheetCapacity = defaultSheetCapacity
	}
	if strings.TrimSpace(c.Nesting.HandoffPath) == "" {
		c.Nesting.HandoffPath = c.Paths.DataDir + "/sheet_handoff.json"
	}
	if c.Nesting.HandoffPath, err = expandPath(c.Nesting.HandoffPath); err != nil {
		return fmt.Errorf("nesting.handoff_path: %w", err)
	}
	c.Nesting.MixedColorLabel = strings.TrimSpace(c.Nesting.MixedColorLabel)
	if c.Nesting.MixedColorLabel == "" {
		c.Nesting.MixedColorLabel = defaultMixedColorLabel
	}
	return nil
}

func (c *Config) normalizeJobs() {
	if c.Jobs.TrackingAPIKey == "" {
		if value, ok := os.LookupEnv("TRACKING_API_KEY"); ok {
			c.Jobs.TrackingAPIKey = strings.TrimSpace(value)
		}
	}
	c.Jobs.TrackingBaseURL = strings.TrimRight(strings.TrimSpace(c.Jobs.TrackingBaseURL), "/")
	if c.Jobs.RequestTimeout <= 0 {
		c.Jobs.RequestTimeout = defaultOrderRequestTimout
	}
	c.Jobs.ReferenceField = strings.TrimSpace(c.Jobs.ReferenceField)
	if c.Jobs.ReferenceField == "" {
		c.Jobs.ReferenceField = defaultReferenceField
	}
	c.Jobs.CodePrefix = strings.ToUpper(strings.TrimSpace(c.Jobs.CodePrefix))
	if c.Jobs.CodePrefix == "" {
		c.Jobs.CodePrefix = defaultJobCodePrefix
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.IngestInterval <= 0 {
		c.Workflow.IngestInterval = defaultIngestInterval
	}
	if c.Workflow.ResolveInterval <= 0 {
		c.Workflow.ResolveInterval = defaultResolveInterval
	}
	if c.Workflow.ArtworkInterval <= 0 {
		c.Workflow.ArtworkInterval = defaultArtworkInterval
	}
	if c.Workflow.NestingInterval <= 0 {
		c.Workflow.NestingInterval = defaultNestingInterval
	}
	if c.Workflow.TagSyncInterval <= 0 {
		c.Workflow.TagSyncInterval = defaultTagSyncInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.BatchLimit <= 0 {
		c.Workflow.BatchLimit = defaultBatchLimit
	}
	if c.Tags.RateLimitThreshold <= 0 {
		c.Tags.RateLimitThreshold = defaultRateLimitThreshold
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
