package transfer

import "time"

type ScheduleRequest struct {
	MediaID       int64     `json:"media_id"`
	MediaURL      string    `json:"media_url"`
	MediaKind     string    `json:"media_kind"`
	Caption       string    `json:"caption"`
	Hashtags      []string  `json:"hashtags"`
	AccountID     int64     `json:"account_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	DriveFileIDs  []string  `json:"drive_file_ids"`
	DriveFolderID string    `json:"drive_folder_id"`
}

type PublishNowRequest struct {
	MediaID       int64    `json:"media_id"`
	MediaURL      string   `json:"media_url"`
	MediaKind     string   `json:"media_kind"`
	Caption       string   `json:"caption"`
	Hashtags      []string `json:"hashtags"`
	AccountID     int64    `json:"account_id"`
	DriveFileIDs  []string `json:"drive_file_ids"`
	DriveFolderID string   `json:"drive_folder_id"`
}

// RecurrenceUpdate is a partial update; nil fields keep their stored value.
type RecurrenceUpdate struct {
	Enabled       *bool    `json:"enabled"`
	Frequency     *string  `json:"frequency"`
	PostTimes     []string `json:"post_times"`
	DriveFolderID *string  `json:"drive_folder_id"`
}

// PostedRoundRequest uses the drive picker's field names.
type PostedRoundRequest struct {
	FolderID string   `json:"folderId"`
	FileIDs  []string `json:"fileIds"`
}

type CronResult struct {
	OK        bool     `json:"ok"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}
