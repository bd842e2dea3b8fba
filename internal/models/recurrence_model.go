package models

import "time"

type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyEvery3Days Frequency = "every_3_days"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyEvery3Days, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

var DefaultPostTimes = []string{"09:00", "14:00", "19:00"}

// RecurrenceSettings is the per-owner auto-post schedule. NextRunAt is nil
// whenever Enabled is false.
type RecurrenceSettings struct {
	UserID        int64      `db:"user_id" json:"user_id"`
	Enabled       bool       `db:"enabled" json:"enabled"`
	Frequency     Frequency  `db:"frequency" json:"frequency"`
	PostTimes     []string   `db:"post_times" json:"post_times"`
	NextTimeIndex int        `db:"next_time_index" json:"next_time_index"`
	NextRunAt     *time.Time `db:"next_run_at" json:"next_run_at"`
	DriveFolderID string     `db:"drive_folder_id" json:"drive_folder_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// DefaultRecurrenceSettings is what an owner sees before configuring anything.
func DefaultRecurrenceSettings(userID int64) *RecurrenceSettings {
	times := make([]string, len(DefaultPostTimes))
	copy(times, DefaultPostTimes)
	return &RecurrenceSettings{
		UserID:    userID,
		Frequency: FrequencyDaily,
		PostTimes: times,
	}
}
