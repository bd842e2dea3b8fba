package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// maxDownloadSize caps a single media download.
const maxDownloadSize = 512 << 20

type DriveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

type DriveDownload struct {
	DriveFile
	Data []byte
}

// DriveService lists and fetches candidate media from an owner's linked
// Google Drive.
type DriveService interface {
	// DefaultFolder is the folder chosen when the owner linked Drive, or
	// empty when none was chosen.
	DefaultFolder(ctx context.Context, userID int64) (string, error)
	ListMedia(ctx context.Context, userID int64, folderID string) ([]DriveFile, error)
	Download(ctx context.Context, userID int64, fileID string) (*DriveDownload, error)
}

type driveService struct {
	cfg   config.Config
	da    repository.DriveAccountRepository
	oauth *oauth2.Config
	opts  []option.ClientOption
}

func NewDriveService(cfg config.Config, da repository.DriveAccountRepository, opts ...option.ClientOption) DriveService {
	return &driveService{
		cfg: cfg,
		da:  da,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{drive.DriveReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		opts: opts,
	}
}

func (s *driveService) DefaultFolder(ctx context.Context, userID int64) (string, error) {
	account, err := s.da.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", nil
	}
	return account.FolderID, nil
}

func (s *driveService) ListMedia(ctx context.Context, userID int64, folderID string) ([]DriveFile, error) {
	srv, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	if folderID == "" {
		folderID = models.RootFolder
	}
	q := fmt.Sprintf("'%s' in parents and trashed = false and (mimeType contains 'image/' or mimeType contains 'video/')",
		strings.ReplaceAll(folderID, "'", `\'`))

	var files []DriveFile
	err = srv.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name, mimeType)").
		PageSize(100).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, DriveFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
			}
			return nil
		})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("listing drive folder %s: %w", folderID, err)
	}

	return files, nil
}

func (s *driveService) Download(ctx context.Context, userID int64, fileID string) (*DriveDownload, error) {
	srv, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	meta, err := srv.Files.Get(fileID).Fields("id, name, mimeType").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("reading drive file %s: %w", fileID, err)
	}

	resp, err := srv.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("downloading drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading drive file %s: %w", fileID, err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("drive file %s is larger than %d bytes", fileID, maxDownloadSize)
	}

	return &DriveDownload{
		DriveFile: DriveFile{ID: meta.Id, Name: meta.Name, MimeType: meta.MimeType},
		Data:      data,
	}, nil
}

// client builds a Drive client from the stored tokens, persisting the access
// token whenever the refresh token had to be used.
func (s *driveService) client(ctx context.Context, userID int64) (*drive.Service, error) {
	account, err := s.da.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrDriveNotLinked
	}

	key := []byte(s.cfg.SecretKey)
	accessToken, err := utils.Decrypt(account.AccessToken, key)
	if err != nil {
		return nil, fmt.Errorf("decrypting drive access token: %w", err)
	}
	refreshToken, err := utils.Decrypt(account.RefreshToken, key)
	if err != nil {
		return nil, fmt.Errorf("decrypting drive refresh token: %w", err)
	}

	tokenSource := s.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       account.TokenExpiry,
	})
	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("refreshing drive token: %w", err)
	}

	if token.AccessToken != accessToken {
		encrypted, err := utils.Encrypt([]byte(token.AccessToken), key)
		if err != nil {
			return nil, err
		}
		if err := s.da.SetToken(ctx, userID, encrypted, token.Expiry); err != nil {
			slog.Warn("saving refreshed drive token failed", "user_id", userID, "error", err)
		}
	}

	opts := append([]option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(token))}, s.opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("creating drive client: %w", err)
	}
	return srv, nil
}
