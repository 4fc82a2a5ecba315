package queue

import (
	"context"
	"fmt"
)

// ReadyOrders returns order identifiers whose every active item has
// successfully generated artwork, with no holds and no tag applied yet.
func (s *Store) ReadyOrders(ctx context.Context) ([]string, error) {
	return s.queryOrderIDs(ctx, `
        SELECT order_id FROM work_items
        WHERE shipped = 0
        GROUP BY order_id
        HAVING SUM(CASE WHEN artwork_generated = 1 AND artwork_succeeded = 1 THEN 0 ELSE 1 END) = 0
           AND MAX(proof_requested) = 0
           AND MAX(custom_request) = 0
           AND MAX(tag_applied) = 0
        ORDER BY order_id`)
}

// InterventionOrders returns order identifiers that need operator attention
// and have not been tagged yet: hold flags, exhausted parse retries, or
// artwork generation errors.
func (s *Store) InterventionOrders(ctx context.Context, attemptLimit int) ([]string, error) {
	return s.queryOrderIDs(ctx, `
        SELECT order_id FROM work_items
        WHERE shipped = 0
        GROUP BY order_id
        HAVING MAX(tag_applied) = 0
           AND (
               MAX(proof_requested) = 1
               OR MAX(custom_request) = 1
               OR MAX(CASE WHEN parsed = 0 AND parse_attempts >= ? THEN 1 ELSE 0 END) = 1
               OR MAX(CASE WHEN generation_error IS NOT NULL AND TRIM(generation_error) != '' THEN 1 ELSE 0 END) = 1
           )
        ORDER BY order_id`, attemptLimit)
}

// MarkOrderTagged records that the marketplace tag was applied to an order.
// The flag is only ever set here; clearing it is a manual data correction.
func (s *Store) MarkOrderTagged(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE work_items SET tag_applied = 1, updated_at = ? WHERE order_id = ?",
		timestamp(), orderID)
	if err != nil {
		return fmt.Errorf("mark order %s tagged: %w", orderID, err)
	}
	return nil
}

func (s *Store) queryOrderIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orderIDs []string
	for rows.Next() {
		var orderID string
		if err := rows.Scan(&orderID); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		orderIDs = append(orderIDs, orderID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orderIDs, nil
}
