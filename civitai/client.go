package civitai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the public Civitai API root
	DefaultBaseURL = "https://civitai.com/api/v1"
	// DefaultPageSize matches the API's own default limit
	DefaultPageSize = 30
	// MaxPageSize is the largest limit the images endpoint accepts
	MaxPageSize = 200
)

var _ API = (*Client)(nil)

// Client represents a Civitai API client
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	pageSize   int
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Civitai client
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: civitai URL is required", ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid civitai URL %q: %v", ErrInvalidConfig, baseURL, err)
	}

	client := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "civshow",
		pageSize:  DefaultPageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// doRequest performs a GET request and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug().
		Str("url", reqURL).
		Msg("Making Civitai API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	return body, nil
}

// TestConnection tests the connection to the API with a single-item probe
func (c *Client) TestConnection(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")

	if _, err := c.doRequest(ctx, "/images", params); err != nil {
		return fmt.Errorf("failed to connect to Civitai: %w", err)
	}
	return nil
}

// FetchMedia fetches one page of media. On failure the returned Result is
// empty with HasMore false, and the error wraps ErrFetchFailed.
func (c *Client) FetchMedia(ctx context.Context, req Request) (Result, error) {
	body, err := c.doRequest(ctx, "/images", c.buildParams(req))
	if err != nil {
		c.logger.Error().Err(err).Msg("Error fetching media from Civitai")
		return Result{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	var response imagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		c.logger.Error().Err(err).Msg("Failed to parse Civitai response")
		return Result{}, fmt.Errorf("%w: failed to parse response: %w", ErrFetchFailed, err)
	}

	result := Result{
		Items: make([]MediaItem, 0, len(response.Items)),
	}
	for _, record := range response.Items {
		result.Items = append(result.Items, record.toMediaItem())
	}
	if response.Metadata != nil {
		result.NextCursor = string(response.Metadata.NextCursor)
		result.CurrentPage = response.Metadata.CurrentPage
		result.TotalPages = response.Metadata.TotalPages
	}
	result.HasMore = result.NextCursor != ""

	c.logger.Debug().
		Int("count", len(result.Items)).
		Str("next_cursor", result.NextCursor).
		Bool("has_more", result.HasMore).
		Msg("Retrieved media from Civitai")

	return result, nil
}

// buildParams maps a Request onto the images query string
func (c *Client) buildParams(req Request) url.Values {
	limit := req.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("nsfw", strconv.FormatBool(req.NSFW))

	if req.Kind != "" && req.Kind != KindAll {
		params.Set("type", string(req.Kind))
	}
	if req.Search != "" {
		params.Set("query", req.Search)
	}
	if req.Cursor != "" {
		params.Set("cursor", req.Cursor)
	}
	if req.Page > 0 {
		params.Set("page", strconv.Itoa(req.Page))
	}
	if req.Sort != "" {
		params.Set("sort", string(req.Sort))
	}
	// AllTime is the server default
	if req.Period != "" && req.Period != PeriodAllTime {
		params.Set("period", string(req.Period))
	}

	return params
}
