package queue

import (
	"context"
	"database/sql"
	"fmt"
)

// NextJobNumber atomically allocates the next job number for a station and
// material pair. Numbers start at 1 and never repeat.
func (s *Store) NextJobNumber(ctx context.Context, stationID, materialID string) (int64, error) {
	var number int64
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO job_counters (station_id, material_id, next_number)
        VALUES (?, ?, 2)
        ON CONFLICT(station_id, material_id)
            DO UPDATE SET next_number = next_number + 1
        RETURNING next_number - 1`,
		stationID, materialID).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("allocate job number %s/%s: %w", stationID, materialID, err)
	}
	return number, nil
}

// InsertJob persists a registered production job.
func (s *Store) InsertJob(ctx context.Context, job *ProductionJob) (*ProductionJob, error) {
	now := timestamp()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO production_jobs (
            job_code, station_id, material_id, job_number, sheet_id,
            item_ids, order_ids, tracking_job_id, notified, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobCode, job.StationID, job.MaterialID, job.JobNumber, job.SheetID,
		encodeStrings(job.ItemIDs), encodeStrings(job.OrderIDs),
		nullableString(job.TrackingJobID), boolToInt(job.Notified), now)
	if err != nil {
		return nil, fmt.Errorf("insert job %s: %w", job.JobCode, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJobByID(ctx, id)
}

// SetJobTracking records the external tracking identifier after a
// successful registration with the tracking service.
func (s *Store) SetJobTracking(ctx context.Context, jobCode, trackingJobID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE production_jobs SET tracking_job_id = ? WHERE job_code = ?",
		nullableString(trackingJobID), jobCode)
	if err != nil {
		return fmt.Errorf("set tracking id for %s: %w", jobCode, err)
	}
	return nil
}

// MarkJobNotified records that the job notification was delivered.
func (s *Store) MarkJobNotified(ctx context.Context, jobCode string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE production_jobs SET notified = 1 WHERE job_code = ?", jobCode)
	if err != nil {
		return fmt.Errorf("mark job %s notified: %w", jobCode, err)
	}
	return nil
}

// GetJobByID fetches one production job by row id.
func (s *Store) GetJobByID(ctx context.Context, id int64) (*ProductionJob, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, job_code, station_id, material_id, job_number, sheet_id,
               item_ids, order_ids, tracking_job_id, notified, created_at
        FROM production_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return job, nil
}

// GetJobByCode fetches one production job by its job code.
func (s *Store) GetJobByCode(ctx context.Context, jobCode string) (*ProductionJob, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, job_code, station_id, material_id, job_number, sheet_id,
               item_ids, order_ids, tracking_job_id, notified, created_at
        FROM production_jobs WHERE job_code = ?`, jobCode)
	job, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %s: %w", jobCode, err)
	}
	return job, nil
}

// ListJobs returns all production jobs, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]*ProductionJob, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, job_code, station_id, material_id, job_number, sheet_id,
               item_ids, order_ids, tracking_job_id, notified, created_at
        FROM production_jobs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*ProductionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*ProductionJob, error) {
	var (
		id            int64
		jobCode       string
		stationID     string
		materialID    string
		jobNumber     int64
		sheetID       string
		itemIDs       sql.NullString
		orderIDs      sql.NullString
		trackingJobID sql.NullString
		notified      sql.NullInt64
		createdRaw    sql.NullString
	)
	if err := scanner.Scan(&id, &jobCode, &stationID, &materialID, &jobNumber,
		&sheetID, &itemIDs, &orderIDs, &trackingJobID, &notified, &createdRaw); err != nil {
		return nil, err
	}
	return &ProductionJob{
		ID:            id,
		JobCode:       jobCode,
		StationID:     stationID,
		MaterialID:    materialID,
		JobNumber:     jobNumber,
		SheetID:       sheetID,
		ItemIDs:       decodeStrings(itemIDs.String),
		OrderIDs:      decodeStrings(orderIDs.String),
		TrackingJobID: trackingJobID.String,
		Notified:      notified.Int64 != 0,
		CreatedAt:     parseTimeString(createdRaw.String),
	}, nil
}
