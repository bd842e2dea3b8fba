package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
)

// PostedRoundRepository stores which candidate files were already used in the
// current cycle of an owner's folder.
type PostedRoundRepository interface {
	List(ctx context.Context, userID int64, folderID string) ([]string, error)
	Add(ctx context.Context, userID int64, folderID string, fileIDs []string) error
	Clear(ctx context.Context, userID int64, folderID string) error
}

type postedRoundRepository struct {
	db *sql.DB
}

func NewPostedRoundRepository(db *sql.DB) PostedRoundRepository {
	return &postedRoundRepository{db: db}
}

func (r *postedRoundRepository) List(ctx context.Context, userID int64, folderID string) ([]string, error) {
	query := `SELECT file_id FROM drive_posted_round WHERE user_id = $1 AND folder_id = $2 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID, folderID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return ids, nil
}

func (r *postedRoundRepository) Add(ctx context.Context, userID int64, folderID string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO drive_posted_round (user_id, folder_id, file_id)
		SELECT $1, $2, UNNEST($3::text[])
		ON CONFLICT (user_id, folder_id, file_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, userID, folderID, pq.Array(fileIDs))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postedRoundRepository) Clear(ctx context.Context, userID int64, folderID string) error {
	query := `DELETE FROM drive_posted_round WHERE user_id = $1 AND folder_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, folderID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
