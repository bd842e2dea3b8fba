package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/pkg/utils"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

var (
	_ repository.PostRepository          = (*memPostRepo)(nil)
	_ repository.SocialAccountRepository = (*memAccountRepo)(nil)
	_ repository.MediaAssetRepository    = (*memMediaRepo)(nil)
	_ repository.PostedRoundRepository   = (*memRoundRepo)(nil)
	_ repository.RecurrenceRepository    = (*memRecurrenceRepo)(nil)
	_ InstagramService                   = (*fakeInstagram)(nil)
	_ FacebookService                    = (*fakeFacebook)(nil)
	_ DriveService                       = (*fakeDrive)(nil)
	_ StorageService                     = (*fakeStorage)(nil)
	_ Scheduler                          = (*fakeScheduler)(nil)
)

func encryptedToken(token string) string {
	enc, err := utils.Encrypt([]byte(token), []byte(testSecretKey))
	if err != nil {
		panic(err)
	}
	return enc
}

type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newMemPostRepo(posts ...*models.Post) *memPostRepo {
	r := &memPostRepo{posts: map[string]*models.Post{}}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Hashtags = slices.Clone(p.Hashtags)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

func (r *memPostRepo) get(id string) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		return clonePost(p)
	}
	return nil
}

func (r *memPostRepo) Create(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; ok {
		return fmt.Errorf("duplicate post %s", post.ID)
	}
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *memPostRepo) GetByID(ctx context.Context, userID int64, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return clonePost(p), nil
}

func (r *memPostRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.UserID == userID {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (r *memPostRepo) ListDue(ctx context.Context, userID int64, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.UserID == userID && p.Status == models.PostStatusScheduled && !p.ScheduledAt.After(now) {
			out = append(out, clonePost(p))
		}
	}
	slices.SortFunc(out, func(a, b *models.Post) int { return a.ScheduledAt.Compare(b.ScheduledAt) })
	return out, nil
}

func (r *memPostRepo) Claim(ctx context.Context, userID int64, id string, from ...models.PostStatus) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.UserID != userID || !slices.Contains(from, p.Status) {
		return nil, nil
	}
	p.Status = models.PostStatusPublishing
	return clonePost(p), nil
}

func (r *memPostRepo) MarkPublished(ctx context.Context, userID int64, id, destinationMediaID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.UserID != userID || p.Status != models.PostStatusPublishing {
		return repository.ErrStaleTransition
	}
	p.Status = models.PostStatusPublished
	p.PublishedAt = &at
	p.DestinationMediaID = destinationMediaID
	p.Error = ""
	return nil
}

func (r *memPostRepo) MarkFailed(ctx context.Context, userID int64, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.UserID != userID || p.Status == models.PostStatusPublished {
		return repository.ErrStaleTransition
	}
	p.Status = models.PostStatusFailed
	p.Error = reason
	p.PublishedAt = nil
	p.DestinationMediaID = ""
	return nil
}

type memAccountRepo struct {
	accounts []*models.SocialAccount
}

func (r *memAccountRepo) GetByID(ctx context.Context, userID, id int64) (*models.SocialAccount, error) {
	for _, a := range r.accounts {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memMediaRepo struct {
	mu     sync.Mutex
	nextID int64
	assets map[int64]*models.MediaAsset
}

func newMemMediaRepo() *memMediaRepo {
	return &memMediaRepo{assets: map[int64]*models.MediaAsset{}}
}

func (r *memMediaRepo) Create(ctx context.Context, ma *models.MediaAsset) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := *ma
	c.ID = r.nextID
	r.assets[c.ID] = &c
	return c.ID, nil
}

func (r *memMediaRepo) GetByID(ctx context.Context, userID, id int64) (*models.MediaAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assets[id]; ok && a.UserID == userID {
		c := *a
		return &c, nil
	}
	return nil, nil
}

type memRoundRepo struct {
	mu     sync.Mutex
	rounds map[string][]string
}

func newMemRoundRepo() *memRoundRepo {
	return &memRoundRepo{rounds: map[string][]string{}}
}

func roundKey(userID int64, folderID string) string {
	return fmt.Sprintf("%d/%s", userID, folderID)
}

func (r *memRoundRepo) List(ctx context.Context, userID int64, folderID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rounds[roundKey(userID, folderID)]), nil
}

func (r *memRoundRepo) Add(ctx context.Context, userID int64, folderID string, fileIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := roundKey(userID, folderID)
	for _, id := range fileIDs {
		if !slices.Contains(r.rounds[key], id) {
			r.rounds[key] = append(r.rounds[key], id)
		}
	}
	return nil
}

func (r *memRoundRepo) Clear(ctx context.Context, userID int64, folderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rounds, roundKey(userID, folderID))
	return nil
}

type memRecurrenceRepo struct {
	mu       sync.Mutex
	settings map[int64]*models.RecurrenceSettings
	saves    int
}

func newMemRecurrenceRepo(settings ...*models.RecurrenceSettings) *memRecurrenceRepo {
	r := &memRecurrenceRepo{settings: map[int64]*models.RecurrenceSettings{}}
	for _, s := range settings {
		r.settings[s.UserID] = s
	}
	return r
}

func cloneSettings(s *models.RecurrenceSettings) *models.RecurrenceSettings {
	c := *s
	c.PostTimes = slices.Clone(s.PostTimes)
	if s.NextRunAt != nil {
		t := *s.NextRunAt
		c.NextRunAt = &t
	}
	return &c
}

func (r *memRecurrenceRepo) GetByUserID(ctx context.Context, userID int64) (*models.RecurrenceSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.settings[userID]; ok {
		return cloneSettings(s), nil
	}
	return nil, nil
}

func (r *memRecurrenceRepo) Save(ctx context.Context, s *models.RecurrenceSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.settings[s.UserID] = cloneSettings(s)
	return nil
}

func (r *memRecurrenceRepo) ListDue(ctx context.Context, now time.Time) ([]*models.RecurrenceSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RecurrenceSettings
	for _, s := range r.settings {
		if s.Enabled && s.NextRunAt != nil && !s.NextRunAt.After(now) {
			out = append(out, cloneSettings(s))
		}
	}
	return out, nil
}

type fakeInstagram struct {
	mu       sync.Mutex
	calls    []PublishRequest
	err      error
	panicMsg string
	delay    time.Duration
	// block holds Publish until ctx is done, like a container poll that outlives its deadline.
	block bool
}

func (f *fakeInstagram) Publish(ctx context.Context, req PublishRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.block {
		<-ctx.Done()
		return "", fmt.Errorf("checking container status: %w", ctx.Err())
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("ig-media-%d", n), nil
}

func (f *fakeInstagram) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeFacebook struct {
	calls []PagePublishRequest
	err   error
}

func (f *fakeFacebook) PublishToPage(ctx context.Context, req PagePublishRequest) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return "page-post-1", nil
}

type fakeDrive struct {
	folder    string
	files     []DriveFile
	listErr   error
	downloads []string
}

func (f *fakeDrive) DefaultFolder(ctx context.Context, userID int64) (string, error) {
	return f.folder, nil
}

func (f *fakeDrive) ListMedia(ctx context.Context, userID int64, folderID string) ([]DriveFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

// jpegHeader is enough for content sniffing to report image/jpeg.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func (f *fakeDrive) Download(ctx context.Context, userID int64, fileID string) (*DriveDownload, error) {
	f.downloads = append(f.downloads, fileID)
	for _, file := range f.files {
		if file.ID == fileID {
			return &DriveDownload{DriveFile: file, Data: jpegHeader}, nil
		}
	}
	return nil, errors.New("drive file not found")
}

type fakeStorage struct {
	keys []string
}

func (f *fakeStorage) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://media.example.com/" + key, nil
}

type fakeScheduler struct {
	jobID     string
	err       error
	available bool
	enqueued  []string
}

func (f *fakeScheduler) Enqueue(ctx context.Context, post *models.Post, runAt time.Time) (string, error) {
	f.enqueued = append(f.enqueued, post.ID)
	return f.jobID, f.err
}

func (f *fakeScheduler) IsAvailable(ctx context.Context) bool {
	return f.available
}

// pipeline wires a publish service over in-memory stores.
type pipeline struct {
	posts    *memPostRepo
	accounts *memAccountRepo
	media    *memMediaRepo
	ig       *fakeInstagram
	fb       *fakeFacebook
	svc      *publishService
}

func newPipeline(posts ...*models.Post) *pipeline {
	p := &pipeline{
		posts: newMemPostRepo(posts...),
		accounts: &memAccountRepo{accounts: []*models.SocialAccount{{
			ID:          1,
			UserID:      7,
			AccountID:   "ig-user-1",
			AccessToken: encryptedToken("ig-token"),
		}}},
		media: newMemMediaRepo(),
		ig:    &fakeInstagram{},
		fb:    &fakeFacebook{},
	}
	p.svc = &publishService{
		cfg: testConfig(),
		pr:  p.posts,
		ac:  p.accounts,
		ma:  p.media,
		ig:  p.ig,
		fb:  p.fb,
		now: time.Now,
	}
	return p
}

func scheduledPost(id string, at time.Time) *models.Post {
	return &models.Post{
		ID:          id,
		UserID:      7,
		MediaURL:    "https://cdn.example.com/" + id + ".jpg",
		MediaKind:   models.MediaKindImage,
		Caption:     "hello",
		Hashtags:    []string{"#a", "#b"},
		ScheduledAt: at,
		Status:      models.PostStatusScheduled,
	}
}
