package service

import (
	"context"
	"net/url"

	"github.com/maheshrc27/postflow/internal/models"
)

type PagePublishRequest struct {
	PageID      string
	AccessToken string
	MediaURL    string
	Kind        models.MediaKind
	Caption     string
}

// FacebookService posts to the Facebook Page linked to an Instagram account
// in a single call.
type FacebookService interface {
	PublishToPage(ctx context.Context, req PagePublishRequest) (string, error)
}

type facebookService struct {
	graph *GraphClient
}

func NewFacebookService(graph *GraphClient) FacebookService {
	return &facebookService{graph: graph}
}

func (s *facebookService) PublishToPage(ctx context.Context, req PagePublishRequest) (string, error) {
	if !IsPublicMediaURL(req.MediaURL) {
		return "", ErrMediaNotPublic
	}

	params := url.Values{}
	params.Set("access_token", req.AccessToken)

	edge := "photos"
	if req.Kind == models.MediaKindVideo {
		edge = "videos"
		params.Set("file_url", req.MediaURL)
		params.Set("description", req.Caption)
	} else {
		params.Set("url", req.MediaURL)
		params.Set("caption", req.Caption)
	}

	return s.graph.PostToPage(ctx, req.PageID, edge, params)
}
