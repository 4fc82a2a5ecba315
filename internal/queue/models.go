package queue

import (
	"strings"
	"time"
)

// WorkItem is one marketplace line item tracked through the pipeline.
type WorkItem struct {
	ID          int64
	ItemID      string
	OrderID     string
	OrderNumber string
	Store       string
	SKU         string
	Quantity    int
	Color       string
	RawOptions  string
	BuyerNote   string

	Names         []string
	Year          string
	AIResponse    string
	ParseAttempts int

	Parsed           bool
	AISucceeded      bool
	ArtworkGenerated bool
	ArtworkSucceeded bool
	GenerationError  string
	OutputFilename   string
	Nested           bool
	SheetID          string
	Approved         bool
	Shipped          bool
	TagApplied       bool

	ProofRequested bool
	CustomRequest  bool
	OrderKeep      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OnHold reports whether either hold flag blocks automated processing.
func (w *WorkItem) OnHold() bool {
	return w.ProofRequested || w.CustomRequest
}

// ArtworkEligible reports whether the artwork stage may pick up this item.
func (w *WorkItem) ArtworkEligible() bool {
	return w.Parsed && w.AISucceeded && !w.OnHold() && !w.ArtworkGenerated
}

// NestingEligible reports whether the nesting stage may pick up this item.
func (w *WorkItem) NestingEligible() bool {
	return w.ArtworkGenerated && w.ArtworkSucceeded && !w.Nested && !w.Shipped && !w.OnHold()
}

// NeedsManualReview reports whether an operator must look at this item
// before the pipeline can move it further.
func (w *WorkItem) NeedsManualReview(attemptLimit int) bool {
	if w.OnHold() {
		return true
	}
	if !w.Parsed && attemptLimit > 0 && w.ParseAttempts >= attemptLimit {
		return true
	}
	return strings.TrimSpace(w.GenerationError) != ""
}

// ParseUpdate carries the columns owned by the personalization resolver.
type ParseUpdate struct {
	Names          []string
	Year           string
	AIResponse     string
	Parsed         bool
	AISucceeded    bool
	ProofRequested bool
	CustomRequest  bool
	KeepOrder      bool
}

// ArtworkUpdate carries the columns owned by the artwork stage.
type ArtworkUpdate struct {
	Generated      bool
	Succeeded      bool
	OutputFilename string
	GenerationErr  string
}

// ProductionJob is a registered production run covering one nested sheet.
type ProductionJob struct {
	ID            int64
	JobCode       string
	StationID     string
	MaterialID    string
	JobNumber     int64
	SheetID       string
	ItemIDs       []string
	OrderIDs      []string
	TrackingJobID string
	Notified      bool
	CreatedAt     time.Time
}

// HealthSummary describes aggregated queue counts per pipeline gate.
type HealthSummary struct {
	Total            int
	AwaitingParse    int
	AwaitingArtwork  int
	AwaitingNesting  int
	Nested           int
	Shipped          int
	Tagged           int
	OnHold           int
	ManualReview     int
	GenerationErrors int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
