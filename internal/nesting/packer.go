package nesting

import "github.com/google/uuid"

// Item is one artwork piece offered to the packer.
type Item struct {
	ID          string
	OrderNumber string
	Color       string
}

// Constraints bounds a single sheet.
type Constraints struct {
	Capacity int
}

// Sheet is one packed production sheet. Every input item appears in
// exactly one Placed or Rejected slice across the returned sheets.
type Sheet struct {
	SheetID  string
	Placed   []Item
	Rejected []Item
}

// Packer turns a color bucket of items into sheets. The geometric
// layout itself happens downstream in the document-automation tool;
// the packer decides membership and capacity.
type Packer interface {
	Pack(items []Item, constraints Constraints) []Sheet
}

// slotPacker fills sheets with a fixed number of uniform slots. The
// products handled here are same-sized, so capacity is the only
// constraint and nothing is ever rejected.
type slotPacker struct{}

// NewSlotPacker returns the default capacity-based packer.
func NewSlotPacker() Packer {
	return slotPacker{}
}

func (slotPacker) Pack(items []Item, constraints Constraints) []Sheet {
	if len(items) == 0 {
		return nil
	}
	capacity := constraints.Capacity
	if capacity <= 0 {
		capacity = len(items)
	}

	var sheets []Sheet
	for start := 0; start < len(items); start += capacity {
		end := start + capacity
		if end > len(items) {
			end = len(items)
		}
		sheets = append(sheets, Sheet{
			SheetID: uuid.NewString(),
			Placed:  append([]Item(nil), items[start:end]...),
		})
	}
	return sheets
}
