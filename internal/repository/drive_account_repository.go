package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type DriveAccountRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.DriveAccount, error)
	SetToken(ctx context.Context, userID int64, accessToken string, expiry time.Time) error
}

type driveAccountRepository struct {
	db *sql.DB
}

func NewDriveAccountRepository(db *sql.DB) DriveAccountRepository {
	return &driveAccountRepository{db: db}
}

func (r *driveAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.DriveAccount, error) {
	query := `
		SELECT user_id, access_token, refresh_token, token_expiry, COALESCE(folder_id, ''), created_at, updated_at
		FROM drive_accounts
		WHERE user_id = $1
	`

	var da models.DriveAccount
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&da.UserID, &da.AccessToken, &da.RefreshToken, &da.TokenExpiry, &da.FolderID, &da.CreatedAt, &da.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &da, nil
}

func (r *driveAccountRepository) SetToken(ctx context.Context, userID int64, accessToken string, expiry time.Time) error {
	query := `
		UPDATE drive_accounts
		SET access_token = $2,
			token_expiry = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, userID, accessToken, expiry)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		err = errors.New("no rows affected; drive account may not exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}
