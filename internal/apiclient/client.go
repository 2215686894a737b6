// Package apiclient talks to the convo API over HTTP. Client implements
// directory.Client so a search session can run against a remote directory.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/internal/directory"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api returned status %d", e.StatusCode)
}

// Is lets callers match auth and server failures against
// directory.ErrUnavailable.
func (e *APIError) Is(target error) bool {
	if target != directory.ErrUnavailable {
		return false
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is an authenticated API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client that authenticates with a session token.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// QueryUsers queries the user directory.
func (c *Client) QueryUsers(ctx context.Context, filter directory.FilterExpr, sort directory.SortSpec, opts directory.QueryOptions) (*directory.QueryResult, error) {
	filterJSON, err := directory.MarshalFilter(filter)
	if err != nil {
		return nil, err
	}
	sortJSON, err := json.Marshal(sort)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("filter", string(filterJSON))
	if len(sort) > 0 {
		q.Set("sort", string(sortJSON))
	}
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("offset", strconv.Itoa(opts.Offset))

	var result directory.QueryResult
	if err := c.do(ctx, http.MethodGet, "/api/users?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateChannel creates a named channel.
func (c *Client) CreateChannel(ctx context.Context, req *domain.CreateChannelRequest) (*domain.Channel, error) {
	var ch domain.Channel
	if err := c.do(ctx, http.MethodPost, "/api/chat/channels", req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// OpenDirect opens the one-to-one channel with userID.
func (c *Client) OpenDirect(ctx context.Context, userID string) (*domain.Channel, error) {
	var ch domain.Channel
	if err := c.do(ctx, http.MethodPost, "/api/chat/channels/direct", domain.DirectChannelRequest{UserID: userID}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Invite adds userIDs to channelID.
func (c *Client) Invite(ctx context.Context, channelID string, userIDs []string) (*domain.Channel, error) {
	var ch domain.Channel
	path := "/api/chat/channels/" + url.PathEscape(channelID) + "/members"
	if err := c.do(ctx, http.MethodPost, path, domain.InviteRequest{UserIDs: userIDs}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetChannel fetches a channel.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	var ch domain.Channel
	if err := c.do(ctx, http.MethodGet, "/api/chat/channels/"+url.PathEscape(channelID), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Heartbeat marks the viewer online.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/presence/heartbeat", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", directory.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Message}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return fmt.Errorf("%w: failed to decode response: %w", directory.ErrUnavailable, decodeErr)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: failed to decode data: %w", directory.ErrUnavailable, err)
		}
	}
	return nil
}
