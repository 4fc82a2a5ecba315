package testsupport

import (
	"context"
	"fmt"
	"testing"

	"stencil/internal/config"
	"stencil/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedItem ingests one line item with sensible defaults for tests. The
// suffix distinguishes items; order and item identifiers derive from it.
func SeedItem(t testing.TB, store *queue.Store, suffix string) queue.IngestItem {
	t.Helper()

	item := queue.IngestItem{
		ItemID:      "item-" + suffix,
		OrderID:     "order-" + suffix,
		OrderNumber: "100-" + suffix,
		Store:       "teststore",
		SKU:         "SKU-1",
		Quantity:    1,
		Color:       "black",
		RawOptions:  `[{"name":"Personalization","value":"Liam; Emma 2024"}]`,
		BuyerNote:   "",
	}
	if _, err := store.UpsertIngested(context.Background(), item); err != nil {
		t.Fatalf("UpsertIngested: %v", err)
	}
	return item
}

// SeedOrderItems ingests several line items sharing one order.
func SeedOrderItems(t testing.TB, store *queue.Store, orderSuffix string, count int) []queue.IngestItem {
	t.Helper()

	items := make([]queue.IngestItem, 0, count)
	for i := 0; i < count; i++ {
		item := queue.IngestItem{
			ItemID:      fmt.Sprintf("item-%s-%d", orderSuffix, i),
			OrderID:     "order-" + orderSuffix,
			OrderNumber: "100-" + orderSuffix,
			Store:       "teststore",
			SKU:         "SKU-1",
			Quantity:    1,
			Color:       "black",
		}
		if _, err := store.UpsertIngested(context.Background(), item); err != nil {
			t.Fatalf("UpsertIngested: %v", err)
		}
		items = append(items, item)
	}
	return items
}
