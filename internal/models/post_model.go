package models

import "time"

type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MediaKindFromMIME maps a MIME type onto the two kinds a destination accepts.
func MediaKindFromMIME(mimeType string) MediaKind {
	if len(mimeType) >= 6 && mimeType[:6] == "video/" {
		return MediaKindVideo
	}
	return MediaKindImage
}

// Post is the unit of publishing work. PublishedAt and DestinationMediaID are
// only populated while Status is PostStatusPublished.
type Post struct {
	ID                   string     `db:"id" json:"id"`
	UserID               int64      `db:"user_id" json:"user_id"`
	DestinationAccountID int64      `db:"destination_account_id" json:"destination_account_id"`
	MediaID              int64      `db:"media_id" json:"media_id,omitempty"`
	MediaURL             string     `db:"media_url" json:"media_url"`
	MediaKind            MediaKind  `db:"media_kind" json:"media_kind"`
	Caption              string     `db:"caption" json:"caption"`
	Hashtags             []string   `db:"hashtags" json:"hashtags"`
	ScheduledAt          time.Time  `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt          *time.Time `db:"published_at" json:"published_at"`
	Status               PostStatus `db:"status" json:"status"`
	DestinationMediaID   string     `db:"destination_media_id" json:"destination_media_id,omitempty"`
	Error                string     `db:"error" json:"error,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileType    string    `db:"file_type" json:"file_type"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	FileURL     string    `db:"file_url" json:"file_url"`
	DriveFileID string    `db:"drive_file_id" json:"drive_file_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
