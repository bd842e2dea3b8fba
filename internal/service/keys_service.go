package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/repository"
)

var ErrInvalidApiKey = errors.New("api key doesn't exist")

type ApiKeyService interface {
	GetUserID(ctx context.Context, apiKey string) (int64, error)
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, isExist, err := s.k.GetUserIDByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}

	if !isExist {
		slog.Info(ErrInvalidApiKey.Error())
		return 0, ErrInvalidApiKey
	}

	return userID, nil
}
