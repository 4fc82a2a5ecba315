package ingest

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stencil/internal/config"
	"stencil/internal/services/ordersource"
)

var titleCaser = cases.Title(language.English)

// DeriveColor resolves an item's normalized color from its raw options.
// The store's color map wins; unmapped values fall back to a title-cased
// form of the raw string, and missing color options use the store default.
func DeriveColor(store config.Store, options []ordersource.ItemOption) string {
	for _, option := range options {
		name := strings.ToLower(strings.TrimSpace(option.Name))
		if !isColorOption(store, name) {
			continue
		}
		raw := strings.ToLower(strings.TrimSpace(option.Value))
		if raw == "" {
			continue
		}
		if mapped, ok := store.ColorMap[raw]; ok {
			return mapped
		}
		return titleCaser.String(raw)
	}

	fallback := strings.ToLower(strings.TrimSpace(store.DefaultColor))
	if fallback == "" {
		return ""
	}
	if mapped, ok := store.ColorMap[fallback]; ok {
		return mapped
	}
	return titleCaser.String(fallback)
}

func isColorOption(store config.Store, name string) bool {
	for _, candidate := range store.ColorOptionNames {
		if strings.ToLower(strings.TrimSpace(candidate)) == name {
			return true
		}
	}
	return false
}
