package db

import (
	"context"
	"fmt"

	"problems-service/internal/models"
)

// CreateUpdateRecord inserts one audited update submission.
func (d *DB) CreateUpdateRecord(ctx context.Context, rec models.UpdateRecord) error {
	query := `
    INSERT INTO problem_update (
        id, eventid, acting_user, action_mask, message, suppress_until, status, error, created_at
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9
    )`

	_, err := d.Pool.Exec(ctx, query,
		rec.ID,
		rec.EventID,
		rec.ActingUser,
		rec.ActionMask,
		rec.Message,
		rec.SuppressUntil,
		rec.Status,
		rec.Error,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert update record: %w", err)
	}
	return nil
}

// ListUpdateRecords fetches audited updates, newest first, with pagination
// and an optional event filter.
func (d *DB) ListUpdateRecords(ctx context.Context, eventID string, limit, offset int) ([]models.UpdateRecord, int, error) {
	countQ := `SELECT COUNT(*) FROM problem_update`
	countArgs := []interface{}{}
	if eventID != "" {
		countQ += " WHERE eventid = $1"
		countArgs = append(countArgs, eventID)
	}

	var total int
	if err := d.Pool.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count update records: %w", err)
	}

	query := `
	SELECT
		id, eventid, acting_user, action_mask, message, suppress_until, status, error, created_at
	FROM problem_update`

	args := []interface{}{}
	if eventID != "" {
		query += " WHERE eventid = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, eventID, limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get update records: %w", err)
	}
	defer rows.Close()

	var list []models.UpdateRecord
	for rows.Next() {
		var rec models.UpdateRecord
		err := rows.Scan(
			&rec.ID,
			&rec.EventID,
			&rec.ActingUser,
			&rec.ActionMask,
			&rec.Message,
			&rec.SuppressUntil,
			&rec.Status,
			&rec.Error,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan update record: %w", err)
		}
		list = append(list, rec)
	}

	return list, total, nil
}
