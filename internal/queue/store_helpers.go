package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const itemColumns = "id, item_id, order_id, order_number, store, sku, quantity, color, raw_options, buyer_note, names, year, ai_response, parse_attempts, parsed, ai_succeeded, artwork_generated, artwork_succeeded, generation_error, output_filename, nested, sheet_id, approved, shipped, tag_applied, proof_requested, custom_request, order_keep, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*WorkItem, error) {
	var (
		id              int64
		itemID          string
		orderID         string
		orderNumber     string
		store           string
		skuCol          sql.NullString
		quantity        sql.NullInt64
		color           sql.NullString
		rawOptions      sql.NullString
		buyerNote       sql.NullString
		names           sql.NullString
		year            sql.NullString
		aiResponse      sql.NullString
		parseAttempts   sql.NullInt64
		parsed          sql.NullInt64
		aiSucceeded     sql.NullInt64
		artworkGen      sql.NullInt64
		artworkOK       sql.NullInt64
		generationError sql.NullString
		outputFilename  sql.NullString
		nested          sql.NullInt64
		sheetID         sql.NullString
		approved        sql.NullInt64
		shipped         sql.NullInt64
		tagApplied      sql.NullInt64
		proofRequested  sql.NullInt64
		customRequest   sql.NullInt64
		orderKeep       sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&itemID,
		&orderID,
		&orderNumber,
		&store,
		&skuCol,
		&quantity,
		&color,
		&rawOptions,
		&buyerNote,
		&names,
		&year,
		&aiResponse,
		&parseAttempts,
		&parsed,
		&aiSucceeded,
		&artworkGen,
		&artworkOK,
		&generationError,
		&outputFilename,
		&nested,
		&sheetID,
		&approved,
		&shipped,
		&tagApplied,
		&proofRequested,
		&customRequest,
		&orderKeep,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &WorkItem{
		ID:               id,
		ItemID:           itemID,
		OrderID:          orderID,
		OrderNumber:      orderNumber,
		Store:            store,
		SKU:              skuCol.String,
		Quantity:         int(quantity.Int64),
		Color:            color.String,
		RawOptions:       rawOptions.String,
		BuyerNote:        buyerNote.String,
		Year:             year.String,
		AIResponse:       aiResponse.String,
		ParseAttempts:    int(parseAttempts.Int64),
		Parsed:           parsed.Int64 != 0,
		AISucceeded:      aiSucceeded.Int64 != 0,
		ArtworkGenerated: artworkGen.Int64 != 0,
		ArtworkSucceeded: artworkOK.Int64 != 0,
		GenerationError:  generationError.String,
		OutputFilename:   outputFilename.String,
		Nested:           nested.Int64 != 0,
		SheetID:          sheetID.String,
		Approved:         approved.Int64 != 0,
		Shipped:          shipped.Int64 != 0,
		TagApplied:       tagApplied.Int64 != 0,
		ProofRequested:   proofRequested.Int64 != 0,
		CustomRequest:    customRequest.Int64 != 0,
		OrderKeep:        orderKeep.Int64 != 0,
		CreatedAt:        parseTimeString(createdRaw.String),
		UpdatedAt:        parseTimeString(updatedRaw.String),
	}
	item.Names = decodeStrings(names.String)

	return item, nil
}

func parseTimeString(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func encodeStrings(values []string) any {
	if len(values) == 0 {
		return nil
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(encoded)
}

func decodeStrings(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
