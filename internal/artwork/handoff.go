package artwork

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Document is the fixed-schema handoff payload the driver script reads.
// The schema is shared with the driver side and must not drift.
type Document struct {
	Names     []string `json:"names"`
	Year      *string  `json:"year"`
	Filename  string   `json:"filename"`
	LayerName string   `json:"layerName"`
}

// NewDocument builds the handoff payload for one item.
func NewDocument(names []string, year, filename string) Document {
	doc := Document{
		Names:    names,
		Filename: filename,
	}
	layers := len(names)
	if year != "" {
		doc.Year = &year
		layers++
	}
	doc.LayerName = strconv.Itoa(layers)
	return doc
}

// WriteDocument persists the handoff payload at path, creating parent
// directories as needed.
func WriteDocument(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create handoff dir: %w", err)
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handoff document: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write handoff document: %w", err)
	}
	return nil
}

// OutputFilename derives the artifact name the driver is expected to write.
func OutputFilename(orderNumber, itemID string) string {
	return fmt.Sprintf("%s_%s.pdf", orderNumber, itemID)
}
