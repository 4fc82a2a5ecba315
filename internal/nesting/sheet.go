package nesting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SheetDocument is the handoff record consumed by the document-automation
// tool when materializing a sheet. Field names and ordering are part of
// the contract with that tool.
type SheetDocument struct {
	SheetID      string   `json:"sheetId"`
	MainColor    string   `json:"mainColor"`
	SheetColor   string   `json:"sheetColor"`
	ItemIDs      []string `json:"itemIds"`
	OrderNumbers []string `json:"orderNumbers"`
	Filenames    []string `json:"filenames"`
}

// NewSheetDocument assembles sheet metadata from the packed items.
// SheetColor is the bucket color the sheet was packed under; MainColor
// is the most common item color on the sheet, which differs only for
// mixed-color buckets.
func NewSheetDocument(sheetID, bucketColor string, placed []Item, filenames []string) SheetDocument {
	doc := SheetDocument{
		SheetID:    sheetID,
		SheetColor: bucketColor,
		MainColor:  dominantColor(placed, bucketColor),
		Filenames:  filenames,
	}
	for _, item := range placed {
		doc.ItemIDs = append(doc.ItemIDs, item.ID)
		doc.OrderNumbers = append(doc.OrderNumbers, item.OrderNumber)
	}
	return doc
}

func dominantColor(placed []Item, fallback string) string {
	counts := make(map[string]int)
	best := fallback
	bestCount := 0
	for _, item := range placed {
		counts[item.Color]++
		if counts[item.Color] > bestCount {
			best = item.Color
			bestCount = counts[item.Color]
		}
	}
	return best
}

// WriteSheetDocument writes the handoff record as indented JSON,
// creating parent directories as needed.
func WriteSheetDocument(path string, doc SheetDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sheet handoff directory: %w", err)
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sheet document: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write sheet document: %w", err)
	}
	return nil
}
