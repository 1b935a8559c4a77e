package catalog

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
)

var (
	ErrUnavailable  = errors.New("catalog unavailable")
	ErrBadStatus    = errors.New("catalog bad status")
	ErrUnauthorized = errors.New("catalog unauthorized")
)

// Client talks to a remote catalog service and satisfies Store, so callers
// can swap a local file for a server without other changes. Token is sent
// as a bearer token on every request when set.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

var _ Store = (*Client)(nil)

func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, http.StatusOK, nil)
}

func (c *Client) List(ctx context.Context, limit int) ([]Product, error) {
	path := "/products"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out []Product
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (Product, bool, error) {
	var p Product
	err := c.do(ctx, http.MethodGet, productPath(id), nil, http.StatusOK, &p)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (c *Client) Add(ctx context.Context, in Product) (Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPost, "/products", in, http.StatusCreated, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) Update(ctx context.Context, id int64, patch Product) (Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPatch, productPath(id), patch, http.StatusOK, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) Remove(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, productPath(id), nil, http.StatusNoContent, nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/products", nil, http.StatusNoContent, nil)
}

// IssueToken exchanges admin credentials for an access token.
func (c *Client) IssueToken(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/token", body, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

type errorBody struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}

func statusError(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status=%d %s", ErrUnauthorized, resp.StatusCode, eb.Error)
	case http.StatusBadRequest:
		var findings []Finding
		if len(eb.Details) > 0 && json.Unmarshal(eb.Details, &findings) == nil && len(findings) > 0 {
			return &ValidationError{Findings: findings}
		}
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("%w: status=%d %s", ErrBadStatus, resp.StatusCode, eb.Error)
}
