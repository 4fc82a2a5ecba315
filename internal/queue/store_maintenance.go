package queue

import (
	"context"
	"fmt"
)

// ClearShipped removes shipped, tagged items that no longer need tracking.
func (s *Store) ClearShipped(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM work_items WHERE shipped = 1 AND order_keep = 0")
	if err != nil {
		return 0, fmt.Errorf("clear shipped items: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared rows: %w", err)
	}
	return int(count), nil
}

// Clear removes every work item. Job history and counters are kept so job
// numbers stay unique.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM work_items")
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared rows: %w", err)
	}
	return int(count), nil
}
