package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultCaption = "Check this out ✨"
	maxPostTimes   = 3
	fallbackTime   = "09:00"
)

var DefaultHashtags = []string{"#content", "#post", "#share"}

var postTimePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// RunReport summarises one recurrence run for an owner.
type RunReport struct {
	UserID    int64      `json:"user_id"`
	FileID    string     `json:"file_id,omitempty"`
	PostID    string     `json:"post_id,omitempty"`
	Published bool       `json:"published"`
	Error     string     `json:"error,omitempty"`
	NextRunAt *time.Time `json:"next_run_at"`
}

type RecurrenceService interface {
	GetSettings(ctx context.Context, userID int64) (*models.RecurrenceSettings, error)
	UpdateSettings(ctx context.Context, userID int64, upd *transfer.RecurrenceUpdate) (*models.RecurrenceSettings, error)
	// RunDue publishes one item for every owner whose next run has passed.
	RunDue(ctx context.Context) ([]RunReport, error)
	RunForUser(ctx context.Context, settings *models.RecurrenceSettings) RunReport

	PostedRound(ctx context.Context, userID int64, folderID string) (*models.PostedRound, error)
	MarkPosted(ctx context.Context, userID int64, folderID string, fileIDs []string) error
	ClearRound(ctx context.Context, userID int64, folderID string) error
}

type recurrenceService struct {
	rr      repository.RecurrenceRepository
	rounds  repository.PostedRoundRepository
	ac      repository.SocialAccountRepository
	ma      repository.MediaAssetRepository
	pr      repository.PostRepository
	drive   DriveService
	storage StorageService
	ps      PublishService
	loc     *time.Location
	now     func() time.Time
	pick    func(n int) int
}

func NewRecurrenceService(
	rr repository.RecurrenceRepository,
	rounds repository.PostedRoundRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	pr repository.PostRepository,
	drive DriveService,
	storage StorageService,
	ps PublishService,
	loc *time.Location) RecurrenceService {
	if loc == nil {
		loc = time.UTC
	}
	return &recurrenceService{
		rr:      rr,
		rounds:  rounds,
		ac:      ac,
		ma:      ma,
		pr:      pr,
		drive:   drive,
		storage: storage,
		ps:      ps,
		loc:     loc,
		now:     time.Now,
		pick:    rand.IntN,
	}
}

// ComputeNextRun advances from by the frequency and sets the clock time to
// postTimes[index]. It returns the new run time and the index to use next.
func ComputeNextRun(freq models.Frequency, from time.Time, postTimes []string, index int, loc *time.Location) (time.Time, int) {
	if len(postTimes) == 0 {
		postTimes = models.DefaultPostTimes
	}
	if loc == nil {
		loc = time.UTC
	}
	if index < 0 {
		index = 0
	}
	idx := index % len(postTimes)

	d := from.In(loc)
	switch freq {
	case models.FrequencyEvery3Days:
		d = d.AddDate(0, 0, 3)
	case models.FrequencyWeekly:
		d = d.AddDate(0, 0, 7)
	case models.FrequencyMonthly:
		d = addMonthClamped(d)
	default:
		d = d.AddDate(0, 0, 1)
	}

	hour, minute := parseClock(postTimes[idx])
	next := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
	return next, (idx + 1) % len(postTimes)
}

// addMonthClamped moves to the same day next month, or the last day of next
// month when that day does not exist.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month+1, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func parseClock(hhmm string) (int, int) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 9, 0
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 9, 0
	}
	return hour, minute
}

// NormalizePostTimes keeps at most three times and replaces malformed ones
// with 09:00.
func NormalizePostTimes(times []string) []string {
	if len(times) > maxPostTimes {
		times = times[:maxPostTimes]
	}
	out := make([]string, len(times))
	for i, t := range times {
		t = strings.TrimSpace(t)
		if !postTimePattern.MatchString(t) {
			t = fallbackTime
		}
		out[i] = t
	}
	return out
}

// GetSettings returns stored settings or the defaults. A stale next run is
// projected forward for display only.
func (s *recurrenceService) GetSettings(ctx context.Context, userID int64) (*models.RecurrenceSettings, error) {
	settings, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if settings.Enabled && settings.NextRunAt != nil && !settings.NextRunAt.After(now) {
		next, _ := ComputeNextRun(settings.Frequency, now, settings.PostTimes, settings.NextTimeIndex, s.loc)
		settings.NextRunAt = &next
	}
	return settings, nil
}

func (s *recurrenceService) UpdateSettings(ctx context.Context, userID int64, upd *transfer.RecurrenceUpdate) (*models.RecurrenceSettings, error) {
	settings, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Frequency != nil {
		freq := models.Frequency(*upd.Frequency)
		if !freq.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, *upd.Frequency)
		}
		settings.Frequency = freq
	}
	if upd.Enabled != nil {
		settings.Enabled = *upd.Enabled
	}
	if upd.DriveFolderID != nil {
		settings.DriveFolderID = strings.TrimSpace(*upd.DriveFolderID)
	}
	if len(upd.PostTimes) > 0 {
		settings.PostTimes = NormalizePostTimes(upd.PostTimes)
	}

	if settings.Enabled {
		now := s.now()
		stale := settings.NextRunAt == nil || !settings.NextRunAt.After(now)
		if stale || upd.Frequency != nil || upd.PostTimes != nil {
			next, idx := ComputeNextRun(settings.Frequency, now, settings.PostTimes, settings.NextTimeIndex, s.loc)
			settings.NextRunAt = &next
			settings.NextTimeIndex = idx
		}
	} else {
		settings.NextRunAt = nil
	}

	if err := s.rr.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("saving recurrence settings: %w", err)
	}
	return settings, nil
}

func (s *recurrenceService) load(ctx context.Context, userID int64) (*models.RecurrenceSettings, error) {
	settings, err := s.rr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading recurrence settings: %w", err)
	}
	if settings == nil {
		return models.DefaultRecurrenceSettings(userID), nil
	}
	if len(settings.PostTimes) == 0 {
		settings.PostTimes = append([]string(nil), models.DefaultPostTimes...)
	}
	return settings, nil
}

func (s *recurrenceService) RunDue(ctx context.Context) ([]RunReport, error) {
	due, err := s.rr.ListDue(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("listing due recurrences: %w", err)
	}

	reports := make([]RunReport, 0, len(due))
	for _, settings := range due {
		if ctx.Err() != nil {
			break
		}
		reports = append(reports, s.RunForUser(ctx, settings))
	}
	return reports, nil
}

// RunForUser publishes one randomly chosen unposted item. The next run is
// rescheduled whatever the outcome.
func (s *recurrenceService) RunForUser(ctx context.Context, settings *models.RecurrenceSettings) (report RunReport) {
	report.UserID = settings.UserID
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recurrence run panicked", "user_id", settings.UserID, "panic", r)
			report.Published = false
			report.Error = fmt.Sprintf("unexpected error: %v", r)
		}
		report.NextRunAt = s.advance(ctx, settings)

		if report.Error != "" {
			slog.Info("recurrence run failed", "user_id", report.UserID, "file_id", report.FileID, "error", report.Error)
		} else {
			slog.Info("recurrence run published", "user_id", report.UserID, "file_id", report.FileID, "post_id", report.PostID)
		}
	}()

	if err := s.run(ctx, settings, &report); err != nil {
		report.Error = FailureReason(err)
	}
	return report
}

func (s *recurrenceService) run(ctx context.Context, settings *models.RecurrenceSettings, report *RunReport) error {
	accounts, err := s.ac.ListByUserID(ctx, settings.UserID)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		return ErrNoAccount
	}
	account := accounts[0]

	folderID, err := s.resolveFolder(ctx, settings.UserID, settings.DriveFolderID)
	if err != nil {
		return err
	}

	pool, err := s.drive.ListMedia(ctx, settings.UserID, folderID)
	if err != nil {
		return err
	}
	if len(pool) == 0 {
		return ErrEmptyPool
	}

	candidates, err := s.unposted(ctx, settings.UserID, folderID, pool)
	if err != nil {
		return err
	}
	chosen := candidates[s.pick(len(candidates))]
	report.FileID = chosen.ID

	asset, err := s.materialize(ctx, settings.UserID, chosen)
	if err != nil {
		return err
	}

	postID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generating post id: %w", err)
	}
	post := &models.Post{
		ID:                   postID,
		UserID:               settings.UserID,
		DestinationAccountID: account.ID,
		MediaID:              asset.ID,
		MediaURL:             asset.FileURL,
		MediaKind:            models.MediaKindFromMIME(asset.FileType),
		Caption:              DefaultCaption,
		Hashtags:             append([]string(nil), DefaultHashtags...),
		ScheduledAt:          s.now(),
		Status:               models.PostStatusPublishing,
	}
	if err := s.pr.Create(ctx, post); err != nil {
		return fmt.Errorf("creating post: %w", err)
	}
	report.PostID = post.ID

	outcome := s.ps.PublishClaimed(ctx, post)
	if !outcome.Published() {
		if outcome.Error == "" {
			outcome.Error = "post was not published"
		}
		return errors.New(outcome.Error)
	}
	report.Published = true

	if err := s.rounds.Add(ctx, settings.UserID, folderID, []string{chosen.ID}); err != nil {
		slog.Warn("recording posted item failed", "user_id", settings.UserID, "file_id", chosen.ID, "error", err)
	}
	return nil
}

// unposted returns pool items not yet used this round. When every item has
// been used the round starts over.
func (s *recurrenceService) unposted(ctx context.Context, userID int64, folderID string, pool []DriveFile) ([]DriveFile, error) {
	posted, err := s.rounds.List(ctx, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("loading posted round: %w", err)
	}
	used := make(map[string]struct{}, len(posted))
	for _, id := range posted {
		used[id] = struct{}{}
	}

	candidates := make([]DriveFile, 0, len(pool))
	for _, f := range pool {
		if _, ok := used[f.ID]; !ok {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	if err := s.rounds.Clear(ctx, userID, folderID); err != nil {
		return nil, fmt.Errorf("clearing posted round: %w", err)
	}
	slog.Info("posted round complete, starting over", "user_id", userID, "folder_id", folderID, "items", len(pool))
	return pool, nil
}

// materialize copies a Drive item to public storage and records it as a
// media asset.
func (s *recurrenceService) materialize(ctx context.Context, userID int64, file DriveFile) (*models.MediaAsset, error) {
	download, err := s.drive.Download(ctx, userID, file.ID)
	if err != nil {
		return nil, err
	}

	contentType, ext := DetectContentType(download.Data, download.MimeType)
	url, err := s.storage.Upload(ctx, ObjectKey(s.now(), ext), download.Data, contentType)
	if err != nil {
		return nil, err
	}

	asset := &models.MediaAsset{
		UserID:      userID,
		FileName:    download.Name,
		FileType:    contentType,
		FileSize:    int64(len(download.Data)),
		FileURL:     url,
		DriveFileID: file.ID,
	}
	id, err := s.ma.Create(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("saving media asset: %w", err)
	}
	asset.ID = id
	return asset, nil
}

// advance stores the next run from the latest settings so a concurrent
// disable is not overwritten.
func (s *recurrenceService) advance(ctx context.Context, settings *models.RecurrenceSettings) *time.Time {
	current, err := s.rr.GetByUserID(ctx, settings.UserID)
	if err != nil {
		slog.Error("reloading recurrence settings failed", "user_id", settings.UserID, "error", err)
		current = settings
	}
	if current == nil {
		current = settings
	}
	if !current.Enabled {
		return nil
	}

	next, idx := ComputeNextRun(current.Frequency, s.now(), current.PostTimes, current.NextTimeIndex, s.loc)
	current.NextRunAt = &next
	current.NextTimeIndex = idx
	if err := s.rr.Save(ctx, current); err != nil {
		slog.Error("saving next recurrence run failed", "user_id", settings.UserID, "error", err)
	}
	return &next
}

// resolveFolder falls back from the requested folder to the recurrence
// folder, then the folder chosen at Drive link time, then the Drive root.
func (s *recurrenceService) resolveFolder(ctx context.Context, userID int64, folderID string) (string, error) {
	if folderID = strings.TrimSpace(folderID); folderID != "" {
		return folderID, nil
	}

	settings, err := s.rr.GetByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading recurrence settings: %w", err)
	}
	if settings != nil && settings.DriveFolderID != "" {
		return settings.DriveFolderID, nil
	}

	folderID, err = s.drive.DefaultFolder(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading drive account: %w", err)
	}
	if folderID != "" {
		return folderID, nil
	}
	return models.RootFolder, nil
}

func (s *recurrenceService) PostedRound(ctx context.Context, userID int64, folderID string) (*models.PostedRound, error) {
	folderID, err := s.resolveFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	ids, err := s.rounds.List(ctx, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("loading posted round: %w", err)
	}
	return &models.PostedRound{UserID: userID, FolderID: folderID, FileIDs: ids}, nil
}

func (s *recurrenceService) MarkPosted(ctx context.Context, userID int64, folderID string, fileIDs []string) error {
	ids := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	folderID, err := s.resolveFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}
	return s.rounds.Add(ctx, userID, folderID, ids)
}

func (s *recurrenceService) ClearRound(ctx context.Context, userID int64, folderID string) error {
	folderID, err := s.resolveFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}
	return s.rounds.Clear(ctx, userID, folderID)
}
