package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

type RecurrenceRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.RecurrenceSettings, error)
	Save(ctx context.Context, s *models.RecurrenceSettings) error
	ListDue(ctx context.Context, now time.Time) ([]*models.RecurrenceSettings, error)
}

type recurrenceRepository struct {
	db *sql.DB
}

func NewRecurrenceRepository(db *sql.DB) RecurrenceRepository {
	return &recurrenceRepository{db: db}
}

const recurrenceColumns = `user_id, enabled, frequency, post_times, next_time_index, next_run_at,
	COALESCE(drive_folder_id, ''), created_at, updated_at`

func scanRecurrence(row rowScanner) (*models.RecurrenceSettings, error) {
	var (
		s         models.RecurrenceSettings
		postTimes pq.StringArray
		nextRunAt sql.NullTime
	)
	err := row.Scan(&s.UserID, &s.Enabled, &s.Frequency, &postTimes, &s.NextTimeIndex, &nextRunAt,
		&s.DriveFolderID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.PostTimes = []string(postTimes)
	if nextRunAt.Valid {
		t := nextRunAt.Time
		s.NextRunAt = &t
	}
	return &s, nil
}

func (r *recurrenceRepository) GetByUserID(ctx context.Context, userID int64) (*models.RecurrenceSettings, error) {
	query := `SELECT ` + recurrenceColumns + ` FROM recurrence_settings WHERE user_id = $1`

	s, err := scanRecurrence(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return s, nil
}

// Save creates the row on first configuration and overwrites it afterwards.
func (r *recurrenceRepository) Save(ctx context.Context, s *models.RecurrenceSettings) error {
	query := `
		INSERT INTO recurrence_settings (user_id, enabled, frequency, post_times, next_time_index, next_run_at, drive_folder_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		ON CONFLICT (user_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
			frequency = EXCLUDED.frequency,
			post_times = EXCLUDED.post_times,
			next_time_index = EXCLUDED.next_time_index,
			next_run_at = EXCLUDED.next_run_at,
			drive_folder_id = EXCLUDED.drive_folder_id,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at
	`

	var nextRunAt sql.NullTime
	if s.NextRunAt != nil {
		nextRunAt = sql.NullTime{Time: *s.NextRunAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		s.UserID,
		s.Enabled,
		s.Frequency,
		pq.Array(s.PostTimes),
		s.NextTimeIndex,
		nextRunAt,
		s.DriveFolderID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *recurrenceRepository) ListDue(ctx context.Context, now time.Time) ([]*models.RecurrenceSettings, error) {
	query := `SELECT ` + recurrenceColumns + ` FROM recurrence_settings
		WHERE enabled = TRUE AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var settings []*models.RecurrenceSettings
	for rows.Next() {
		s, err := scanRecurrence(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return settings, nil
}
