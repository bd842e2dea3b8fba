package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postRowColumns = []string{
	"id", "user_id", "destination_account_id", "media_id", "media_url", "media_kind", "caption", "hashtags",
	"scheduled_at", "published_at", "status", "destination_media_id", "error", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostRepository_Claim(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE posts")).
		WithArgs("p1", int64(7), models.PostStatusPublishing, sqlmock.AnyArg(), pq.Array([]string{"scheduled"})).
		WillReturnRows(sqlmock.NewRows(postRowColumns).AddRow(
			"p1", 7, 1, nil, "https://cdn.example.com/a.jpg", "image", "hi", "{#a,#b}",
			at, nil, "publishing", nil, nil, at, at,
		))

	post, err := repo.Claim(context.Background(), 7, "p1", models.PostStatusScheduled)

	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, models.PostStatusPublishing, post.Status)
	assert.Equal(t, []string{"#a", "#b"}, post.Hashtags)
	assert.Zero(t, post.MediaID)
	assert.Nil(t, post.PublishedAt)
	assert.Empty(t, post.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ClaimNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE posts")).
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	post, err := repo.Claim(context.Background(), 7, "p1", models.PostStatusScheduled, models.PostStatusFailed)

	require.NoError(t, err)
	assert.Nil(t, post)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_MarkPublished(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WithArgs("p1", int64(7), models.PostStatusPublished, at, "ig-1", models.PostStatusPublishing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPublished(context.Background(), 7, "p1", "ig-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_MarkPublishedStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkPublished(context.Background(), 7, "p1", "ig-1", time.Now())

	assert.ErrorIs(t, err, ErrStaleTransition)
}

func TestPostRepository_MarkFailedSkipsPublished(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2 AND status <> $6")).
		WithArgs("p1", int64(7), models.PostStatusFailed, "boom", sqlmock.AnyArg(), models.PostStatusPublished).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkFailed(context.Background(), 7, "p1", "boom")

	assert.ErrorIs(t, err, ErrStaleTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM posts WHERE id = $1 AND user_id = $2")).
		WithArgs("p1", int64(7)).
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	post, err := repo.GetByID(context.Background(), 7, "p1")

	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestPostedRoundRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostedRoundRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_id FROM drive_posted_round")).
		WithArgs(int64(7), "root").
		WillReturnRows(sqlmock.NewRows([]string{"file_id"}).AddRow("a").AddRow("b"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO drive_posted_round")).
		WithArgs(int64(7), "root", pq.Array([]string{"c"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM drive_posted_round")).
		WithArgs(int64(7), "root").
		WillReturnResult(sqlmock.NewResult(0, 3))

	ids, err := repo.List(ctx, 7, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, repo.Add(ctx, 7, "root", []string{"c"}))
	require.NoError(t, repo.Add(ctx, 7, "root", nil))
	require.NoError(t, repo.Clear(ctx, 7, "root"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
