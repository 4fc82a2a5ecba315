package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var yearPattern = regexp.MustCompile(`^(19|20)\d{2}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOrderSource(); err != nil {
		return err
	}
	if err := c.validateStores(); err != nil {
		return err
	}
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOrderSource() error {
	if c.OrderSource.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/stencil/config.toml"
		}
		return fmt.Errorf("order_source.base_url is required. Edit %s (create with 'stencil config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateStores() error {
	if len(c.Stores) == 0 {
		return errors.New("at least one [[stores]] section must be configured")
	}
	seen := make(map[string]struct{}, len(c.Stores))
	for _, store := range c.Stores {
		if store.Name == "" {
			return errors.New("stores.name must be set")
		}
		key := strings.ToLower(store.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate store name %q", store.Name)
		}
		seen[key] = struct{}{}
		if len(store.SKUs) == 0 {
			return fmt.Errorf("stores.%s: at least one SKU must be configured", store.Name)
		}
		// The raw-option to color mapping must stay injective; two raw
		// values mapping to the same normalized color is fine, but an empty
		// normalized value would silently drop items from nesting buckets.
		for raw, normalized := range store.ColorMap {
			if strings.TrimSpace(normalized) == "" {
				return fmt.Errorf("stores.%s: color_map[%q] maps to an empty color", store.Name, raw)
			}
		}
	}
	return nil
}

func (c *Config) validateAI() error {
	if !yearPattern.MatchString(c.AI.DefaultYear) {
		return errors.New("ai.default_year must be a four-digit year")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"order_source.request_timeout":  c.OrderSource.RequestTimeout,
		"ai.timeout_seconds":            c.AI.TimeoutSeconds,
		"ai.attempt_limit":              c.AI.AttemptLimit,
		"artwork.timeout_seconds":       c.Artwork.TimeoutSeconds,
		"artwork.max_names":             c.Artwork.MaxNames,
		"nesting.sheet_capacity":        c.Nesting.SheetCapacity,
		"workflow.ingest_interval":      c.Workflow.IngestInterval,
		"workflow.resolve_interval":     c.Workflow.ResolveInterval,
		"workflow.artwork_interval":     c.Workflow.ArtworkInterval,
		"workflow.nesting_interval":     c.Workflow.NestingInterval,
		"workflow.tag_sync_interval":    c.Workflow.TagSyncInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.batch_limit":          c.Workflow.BatchLimit,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		return nil
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
