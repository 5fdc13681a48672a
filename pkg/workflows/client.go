// Package workflows lists workflows through the n8n public REST API.
package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://n8n.ftp-co.com/api/v1"
	DefaultLimit   = 5
	APIKeyHeader   = "X-N8N-API-KEY"
)

type Workflow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type ListResponse struct {
	Data       []Workflow `json:"data"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  log.Logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// List returns up to limit workflows.
func (c *Client) List(ctx context.Context, limit int) ([]Workflow, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	u := fmt.Sprintf("%s/workflows?limit=%d", c.baseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("workflow listing failed: status %d", resp.StatusCode)
	}

	var lr ListResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, errors.Wrap(err, "failed to parse response body")
	}
	if lr.Data == nil {
		lr.Data = []Workflow{}
	}
	return lr.Data, nil
}

// ListOrEmpty is List for display callers: any failure is logged and an
// empty list returned.
func (c *Client) ListOrEmpty(ctx context.Context, limit int) []Workflow {
	wfs, err := c.List(ctx, limit)
	if err != nil {
		c.logger.Warn().Err(err).Str("base_url", c.baseURL).Msg("could not list workflows")
		return []Workflow{}
	}
	return wfs
}
