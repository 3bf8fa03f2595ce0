package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const listPageLimit = 1000

// Client talks to the remote directory API. All operations are keyed by
// (owner, name); the API offers no native upsert and no batch import.
type Client struct {
	baseURL         *url.URL
	authorization   string
	httpClient      *http.Client
	requestIDHeader string
}

func NewClient(baseURL, authorization string, timeout time.Duration, requestIDHeader string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid directory base URL: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:         u,
		authorization:   strings.TrimSpace(authorization),
		httpClient:      &http.Client{Timeout: timeout},
		requestIDHeader: requestIDHeader,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, reqBody any, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("json marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, uuid.NewString())
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && strings.TrimSpace(apiErr.Message) != "" {
			return &CallError{Op: op, Status: resp.StatusCode, Message: apiErr.Message, Code: apiErr.Code}
		}
		return &CallError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("json unmarshal response: %w", err)}
	}
	return nil
}

// Ping verifies the directory is reachable before any phase starts.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, "ping", http.MethodGet, "/api/v1/health", nil, nil, nil)
}

func (c *Client) CreateGroup(ctx context.Context, g Group) error {
	return c.doJSON(ctx, "group create", http.MethodPost, "/api/v1/groups", nil, g, nil)
}

func (c *Client) UpdateGroup(ctx context.Context, owner, name string, g Group) error {
	path := "/api/v1/owners/" + url.PathEscape(owner) + "/groups/" + url.PathEscape(name)
	return c.doJSON(ctx, "group update", http.MethodPut, path, nil, g, nil)
}

func (c *Client) ListGroups(ctx context.Context, owner string) ([]Group, error) {
	path := "/api/v1/owners/" + url.PathEscape(owner) + "/groups"
	var all []Group
	cursor := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(listPageLimit))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var page struct {
			Items      []Group `json:"items"`
			NextCursor *string `json:"next_cursor"`
		}
		if err := c.doJSON(ctx, "group list", http.MethodGet, path, q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == nil || strings.TrimSpace(*page.NextCursor) == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}

func (c *Client) DeleteGroup(ctx context.Context, owner, name string) error {
	path := "/api/v1/owners/" + url.PathEscape(owner) + "/groups/" + url.PathEscape(name)
	return c.doJSON(ctx, "group delete", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) CreateUser(ctx context.Context, u User) error {
	return c.doJSON(ctx, "user create", http.MethodPost, "/api/v1/users", nil, u, nil)
}

func (c *Client) UpdateUser(ctx context.Context, owner, name string, u User) error {
	path := "/api/v1/owners/" + url.PathEscape(owner) + "/users/" + url.PathEscape(name)
	return c.doJSON(ctx, "user update", http.MethodPut, path, nil, u, nil)
}

func (c *Client) ListUsers(ctx context.Context, owner string) ([]User, error) {
	path := "/api/v1/owners/" + url.PathEscape(owner) + "/users"
	var all []User
	cursor := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(listPageLimit))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var page struct {
			Items      []User  `json:"items"`
			NextCursor *string `json:"next_cursor"`
		}
		if err := c.doJSON(ctx, "user list", http.MethodGet, path, q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == nil || strings.TrimSpace(*page.NextCursor) == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}

func (c *Client) DeleteUser(ctx context.Context, owner, name string) error {
	path := "/api/v1/owners/" + url.PathEscape(owner) + "/users/" + url.PathEscape(name)
	return c.doJSON(ctx, "user delete", http.MethodDelete, path, nil, nil, nil)
}

// ListOwners returns every owner namespace known to the directory. Used by
// the purge maintenance operation.
func (c *Client) ListOwners(ctx context.Context) ([]string, error) {
	var out struct {
		Items []string `json:"items"`
	}
	if err := c.doJSON(ctx, "owner list", http.MethodGet, "/api/v1/owners", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
