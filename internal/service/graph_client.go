package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/transfer"
)

const (
	defaultGraphBaseURL    = "https://graph.facebook.com"
	defaultGraphAPIVersion = "v21.0"
	defaultGraphTimeout    = 60 * time.Second
)

// GraphClient talks to the Meta Graph API, which serves both the Instagram
// content publishing endpoints and Facebook Page posts.
type GraphClient struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

type GraphOption func(*GraphClient)

func WithGraphBaseURL(baseURL string) GraphOption {
	return func(c *GraphClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithGraphAPIVersion(version string) GraphOption {
	return func(c *GraphClient) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

func WithGraphHTTPClient(httpClient *http.Client) GraphOption {
	return func(c *GraphClient) {
		c.httpClient = httpClient
	}
}

func NewGraphClient(opts ...GraphOption) *GraphClient {
	c := &GraphClient{
		baseURL:    defaultGraphBaseURL,
		apiVersion: defaultGraphAPIVersion,
		httpClient: &http.Client{Timeout: defaultGraphTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateContainer is step one of Instagram publishing.
func (c *GraphClient) CreateContainer(ctx context.Context, igUserID, accessToken string, params url.Values) (string, error) {
	params.Set("access_token", accessToken)

	var out transfer.GraphIDResponse
	if err := c.postForm(ctx, igUserID+"/media", params, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("no container id returned")
	}
	return out.ID, nil
}

func (c *GraphClient) ContainerStatus(ctx context.Context, containerID, accessToken string) (*transfer.ContainerStatusResponse, error) {
	params := url.Values{}
	params.Set("fields", "status_code,status")
	params.Set("access_token", accessToken)

	var out transfer.ContainerStatusResponse
	if err := c.get(ctx, containerID, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishContainer returns the destination media id. Some API versions omit
// it, in which case the container id stands in.
func (c *GraphClient) PublishContainer(ctx context.Context, igUserID, accessToken, containerID string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", accessToken)

	var out transfer.GraphIDResponse
	if err := c.postForm(ctx, igUserID+"/media_publish", params, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return containerID, nil
	}
	return out.ID, nil
}

// PostToPage creates a photo or video on a Facebook Page.
func (c *GraphClient) PostToPage(ctx context.Context, pageID, edge string, params url.Values) (string, error) {
	var out transfer.GraphIDResponse
	if err := c.postForm(ctx, pageID+"/"+edge, params, &out); err != nil {
		return "", err
	}
	if out.PostID != "" {
		return out.PostID, nil
	}
	return out.ID, nil
}

func (c *GraphClient) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimLeft(path, "/"))
}

func (c *GraphClient) postForm(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *GraphClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path)+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

// do decodes a Graph error envelope whenever one is present, including the
// occasional error body served with a 200.
func (c *GraphClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var errResp transfer.GraphErrorResponse
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != nil {
		return errResp.Error
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("graph API error (status %d): %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
