package queue

import (
	"context"
	"fmt"
)

// ReconcileScope reconciles the shipped flag for one store and SKU scope
// against the set of item identifiers currently open at the marketplace.
// Items absent from the open set are marked shipped unless their order is
// protected by the keep flag; previously shipped items that reappear are
// reactivated. Returns the number of items newly marked shipped and the
// number reactivated.
func (s *Store) ReconcileScope(ctx context.Context, store, sku string, openItemIDs []string) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp()

	open := make([]any, 0, len(openItemIDs)+3)
	open = append(open, now, store, sku)
	for _, id := range openItemIDs {
		open = append(open, id)
	}

	shipQuery := fmt.Sprintf(`
        UPDATE work_items SET shipped = 1, updated_at = ?
        WHERE store = ? AND sku = ? AND shipped = 0 AND order_keep = 0`,
	)
	if len(openItemIDs) > 0 {
		shipQuery += fmt.Sprintf(" AND item_id NOT IN (%s)", makePlaceholders(len(openItemIDs)))
	}
	shipRes, err := tx.ExecContext(ctx, shipQuery, open...)
	if err != nil {
		return 0, 0, fmt.Errorf("mark shipped in %s/%s: %w", store, sku, err)
	}
	shippedCount, err := shipRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("count shipped rows: %w", err)
	}

	var reactivated int64
	if len(openItemIDs) > 0 {
		reviveQuery := fmt.Sprintf(`
            UPDATE work_items SET shipped = 0, updated_at = ?
            WHERE store = ? AND sku = ? AND shipped = 1 AND item_id IN (%s)`,
			makePlaceholders(len(openItemIDs)))
		reviveRes, err := tx.ExecContext(ctx, reviveQuery, open...)
		if err != nil {
			return 0, 0, fmt.Errorf("reactivate items in %s/%s: %w", store, sku, err)
		}
		reactivated, err = reviveRes.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("count reactivated rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit reconcile: %w", err)
	}
	return int(shippedCount), int(reactivated), nil
}
