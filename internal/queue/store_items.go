package queue

import (
	"context"
	"fmt"
)

// IngestItem captures the ingestion-owned fields of a newly fetched line item.
type IngestItem struct {
	ItemID      string
	OrderID     string
	OrderNumber string
	Store       string
	SKU         string
	Quantity    int
	Color       string
	RawOptions  string
	BuyerNote   string
}

// UpsertIngested inserts a line item if absent, or refreshes its
// ingestion-owned columns if it already exists. Columns owned by later
// stages are never touched. Returns true when a new row was inserted.
func (s *Store) UpsertIngested(ctx context.Context, item IngestItem) (bool, error) {
	now := timestamp()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO work_items (
            item_id, order_id, order_number, store, sku, quantity,
            color, raw_options, buyer_note, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(item_id) DO UPDATE SET
            order_id = excluded.order_id,
            order_number = excluded.order_number,
            store = excluded.store,
            sku = excluded.sku,
            quantity = excluded.quantity,
            color = excluded.color,
            raw_options = excluded.raw_options,
            buyer_note = excluded.buyer_note,
            updated_at = excluded.updated_at`,
		item.ItemID, item.OrderID, item.OrderNumber, item.Store, item.SKU,
		item.Quantity, item.Color, item.RawOptions, item.BuyerNote, now, now)
	if err != nil {
		return false, fmt.Errorf("upsert item %s: %w", item.ItemID, err)
	}

	var createdAt string
	if err := s.db.QueryRowContext(ctx,
		"SELECT created_at FROM work_items WHERE item_id = ?", item.ItemID,
	).Scan(&createdAt); err != nil {
		return false, fmt.Errorf("read upserted item: %w", err)
	}
	return createdAt == now, nil
}

// GetByItemID fetches a single item by its external line item identifier.
func (s *Store) GetByItemID(ctx context.Context, itemID string) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM work_items WHERE item_id = ?", itemColumns), itemID)
	item, err := scanItem(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return item, nil
}

// ListByOrderID returns every item belonging to an order.
func (s *Store) ListByOrderID(ctx context.Context, orderID string) ([]*WorkItem, error) {
	return s.queryItems(ctx,
		fmt.Sprintf("SELECT %s FROM work_items WHERE order_id = ? ORDER BY item_id", itemColumns), orderID)
}

// ListBySheetID returns every item nested onto the given sheet.
func (s *Store) ListBySheetID(ctx context.Context, sheetID string) ([]*WorkItem, error) {
	return s.queryItems(ctx,
		fmt.Sprintf("SELECT %s FROM work_items WHERE sheet_id = ? ORDER BY order_number, item_id", itemColumns), sheetID)
}

// ListAll returns every tracked item ordered by order number then item id.
func (s *Store) ListAll(ctx context.Context) ([]*WorkItem, error) {
	return s.queryItems(ctx,
		fmt.Sprintf("SELECT %s FROM work_items ORDER BY order_number, item_id", itemColumns))
}

// UnparsedItems returns active items whose personalization has not been
// resolved and whose bounded retry budget is not exhausted.
func (s *Store) UnparsedItems(ctx context.Context, attemptLimit, limit int) ([]*WorkItem, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM work_items
        WHERE parsed = 0 AND shipped = 0 AND parse_attempts < ?
        ORDER BY order_number, item_id`, itemColumns)
	args := []any{attemptLimit}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryItems(ctx, query, args...)
}

// ArtworkEligibleItems returns items the artwork stage may pick up.
func (s *Store) ArtworkEligibleItems(ctx context.Context, limit int) ([]*WorkItem, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM work_items
        WHERE parsed = 1 AND ai_succeeded = 1
          AND proof_requested = 0 AND custom_request = 0
          AND artwork_generated = 0
        ORDER BY order_number, item_id`, itemColumns)
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryItems(ctx, query, args...)
}

// NestingEligibleItems returns items the nesting stage may place on sheets,
// in deterministic order.
func (s *Store) NestingEligibleItems(ctx context.Context) ([]*WorkItem, error) {
	return s.queryItems(ctx, fmt.Sprintf(`
        SELECT %s FROM work_items
        WHERE artwork_generated = 1 AND artwork_succeeded = 1
          AND nested = 0 AND shipped = 0
          AND proof_requested = 0 AND custom_request = 0
        ORDER BY order_number, item_id`, itemColumns))
}

// ManualReviewItems returns items an operator must look at: exhausted parse
// retries, hold flags, or artwork generation errors.
func (s *Store) ManualReviewItems(ctx context.Context, attemptLimit int) ([]*WorkItem, error) {
	return s.queryItems(ctx, fmt.Sprintf(`
        SELECT %s FROM work_items
        WHERE shipped = 0 AND (
            (parsed = 0 AND parse_attempts >= ?)
            OR proof_requested = 1
            OR custom_request = 1
            OR (generation_error IS NOT NULL AND TRIM(generation_error) != '')
        )
        ORDER BY order_number, item_id`, itemColumns), attemptLimit)
}

// ApplyParseResult records the personalization resolver's outcome. Only
// resolver-owned columns are written. Hold and keep flags are set-only
// here; clearing them is an operator action through ClearOrderHolds or
// SetOrderKeep. New holds propagate to the whole order via SyncOrderHolds.
func (s *Store) ApplyParseResult(ctx context.Context, itemID string, update ParseUpdate) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE work_items SET
            names = ?,
            year = ?,
            ai_response = ?,
            parsed = ?,
            ai_succeeded = ?,
            proof_requested = CASE WHEN ? THEN 1 ELSE proof_requested END,
            custom_request = CASE WHEN ? THEN 1 ELSE custom_request END,
            order_keep = CASE WHEN ? THEN 1 ELSE order_keep END,
            updated_at = ?
        WHERE item_id = ?`,
		encodeStrings(update.Names),
		nullableString(update.Year),
		nullableString(update.AIResponse),
		boolToInt(update.Parsed),
		boolToInt(update.AISucceeded),
		boolToInt(update.ProofRequested),
		boolToInt(update.CustomRequest),
		boolToInt(update.KeepOrder),
		timestamp(),
		itemID)
	if err != nil {
		return fmt.Errorf("apply parse result %s: %w", itemID, err)
	}
	return nil
}

// RecordParseFailure increments the bounded retry counter after a failed
// resolution attempt. The raw response is kept for later inspection.
func (s *Store) RecordParseFailure(ctx context.Context, itemID, rawResponse string) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE work_items SET
            parse_attempts = parse_attempts + 1,
            ai_succeeded = 0,
            ai_response = COALESCE(?, ai_response),
            updated_at = ?
        WHERE item_id = ?`,
		nullableString(rawResponse), timestamp(), itemID)
	if err != nil {
		return fmt.Errorf("record parse failure %s: %w", itemID, err)
	}
	return nil
}

// SyncOrderHolds propagates hold flags to every item of an order so the
// whole order pauses together.
func (s *Store) SyncOrderHolds(ctx context.Context, orderID string, proofRequested, customRequest bool) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE work_items SET
            proof_requested = ?,
            custom_request = ?,
            updated_at = ?
        WHERE order_id = ?`,
		boolToInt(proofRequested), boolToInt(customRequest), timestamp(), orderID)
	if err != nil {
		return fmt.Errorf("sync holds for order %s: %w", orderID, err)
	}
	return nil
}

// ClearOrderHolds lifts both hold flags for an order after an operator has
// resolved the request.
func (s *Store) ClearOrderHolds(ctx context.Context, orderID string) error {
	return s.SyncOrderHolds(ctx, orderID, false, false)
}

// ApplyArtworkResult records the artwork stage's outcome for one item.
// The generated flag is set even on failure so the stage never retries an
// item automatically; failures surface through the manual review view.
func (s *Store) ApplyArtworkResult(ctx context.Context, itemID string, update ArtworkUpdate) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE work_items SET
            artwork_generated = ?,
            artwork_succeeded = ?,
            output_filename = ?,
            generation_error = ?,
            updated_at = ?
        WHERE item_id = ?`,
		boolToInt(update.Generated),
		boolToInt(update.Succeeded),
		nullableString(update.OutputFilename),
		nullableString(update.GenerationErr),
		timestamp(),
		itemID)
	if err != nil {
		return fmt.Errorf("apply artwork result %s: %w", itemID, err)
	}
	return nil
}

// ResetArtwork clears artwork-stage columns so an operator can force a
// regeneration after fixing the underlying problem.
func (s *Store) ResetArtwork(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE work_items SET
            artwork_generated = 0,
            artwork_succeeded = 0,
            generation_error = NULL,
            output_filename = NULL,
            updated_at = ?
        WHERE item_id = ?`,
		timestamp(), itemID)
	if err != nil {
		return fmt.Errorf("reset artwork %s: %w", itemID, err)
	}
	return nil
}

// MarkNested records sheet membership for every item of a placed group in
// a single statement.
func (s *Store) MarkNested(ctx context.Context, sheetID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	args := []any{sheetID, timestamp()}
	for _, id := range itemIDs {
		args = append(args, id)
	}
	query := fmt.Sprintf(`
        UPDATE work_items SET
            nested = 1,
            sheet_id = ?,
            updated_at = ?
        WHERE item_id IN (%s)`, makePlaceholders(len(itemIDs)))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark nested sheet %s: %w", sheetID, err)
	}
	return nil
}

// MarkOrderApproved flags an order as approved by the proof review.
func (s *Store) MarkOrderApproved(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE work_items SET approved = 1, updated_at = ? WHERE order_id = ?",
		timestamp(), orderID)
	if err != nil {
		return fmt.Errorf("approve order %s: %w", orderID, err)
	}
	return nil
}

// SetOrderKeep protects or unprotects an order from shipped-reconciliation.
func (s *Store) SetOrderKeep(ctx context.Context, orderID string, keep bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE work_items SET order_keep = ?, updated_at = ? WHERE order_id = ?",
		boolToInt(keep), timestamp(), orderID)
	if err != nil {
		return fmt.Errorf("set keep for order %s: %w", orderID, err)
	}
	return nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
