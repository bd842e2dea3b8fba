package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

// ErrStaleTransition reports a conditional status update that matched no row,
// either because the post is gone or another consumer moved it first.
var ErrStaleTransition = errors.New("post status changed concurrently")

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, userID int64, id string) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, userID int64, now time.Time) ([]*models.Post, error)
	// Claim moves the post to publishing when its current status is one of
	// from. It returns nil without error when nothing was claimed.
	Claim(ctx context.Context, userID int64, id string, from ...models.PostStatus) (*models.Post, error)
	MarkPublished(ctx context.Context, userID int64, id, destinationMediaID string, at time.Time) error
	MarkFailed(ctx context.Context, userID int64, id, reason string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, destination_account_id, media_id, media_url, media_kind, caption, hashtags,
	scheduled_at, published_at, status, destination_media_id, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post        models.Post
		mediaID     sql.NullInt64
		publishedAt sql.NullTime
		destMediaID sql.NullString
		lastError   sql.NullString
		hashtags    pq.StringArray
	)
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.DestinationAccountID,
		&mediaID,
		&post.MediaURL,
		&post.MediaKind,
		&post.Caption,
		&hashtags,
		&post.ScheduledAt,
		&publishedAt,
		&post.Status,
		&destMediaID,
		&lastError,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	post.MediaID = mediaID.Int64
	post.Hashtags = []string(hashtags)
	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	post.DestinationMediaID = destMediaID.String
	post.Error = lastError.String
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, user_id, destination_account_id, media_id, media_url, media_kind, caption, hashtags, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	var mediaID sql.NullInt64
	if post.MediaID != 0 {
		mediaID = sql.NullInt64{Int64: post.MediaID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		post.ID,
		post.UserID,
		post.DestinationAccountID,
		mediaID,
		post.MediaURL,
		post.MediaKind,
		post.Caption,
		pq.Array(post.Hashtags),
		post.ScheduledAt,
		post.Status,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, userID int64, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND user_id = $2`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_at DESC`
	return r.list(ctx, query, userID)
}

func (r *postRepository) ListDue(ctx context.Context, userID int64, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 AND status = $2 AND scheduled_at <= $3 ORDER BY scheduled_at`
	return r.list(ctx, query, userID, models.PostStatusScheduled, now)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Claim(ctx context.Context, userID int64, id string, from ...models.PostStatus) (*models.Post, error) {
	query := `
		UPDATE posts
		SET status = $3,
			updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = ANY($5)
		RETURNING ` + postColumns

	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	row := r.db.QueryRowContext(ctx, query, id, userID, models.PostStatusPublishing, time.Now(), pq.Array(statuses))
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) MarkPublished(ctx context.Context, userID int64, id, destinationMediaID string, at time.Time) error {
	query := `
		UPDATE posts
		SET status = $3,
			published_at = $4,
			destination_media_id = $5,
			error = NULL,
			updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query, id, userID, models.PostStatusPublished, at, destinationMediaID, models.PostStatusPublishing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(res)
}

// MarkFailed never touches a published post; published is final.
func (r *postRepository) MarkFailed(ctx context.Context, userID int64, id, reason string) error {
	query := `
		UPDATE posts
		SET status = $3,
			error = $4,
			published_at = NULL,
			destination_media_id = NULL,
			updated_at = $5
		WHERE id = $1 AND user_id = $2 AND status <> $6
	`
	res, err := r.db.ExecContext(ctx, query, id, userID, models.PostStatusFailed, reason, time.Now(), models.PostStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if n == 0 {
		return ErrStaleTransition
	}
	return nil
}
