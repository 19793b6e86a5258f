// Package client talks to the memo API server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ai-memo-app/src/domain"

	"github.com/sirupsen/logrus"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap maps the status onto the domain error taxonomy
func (e *APIError) Unwrap() error {
	return e.kind
}

// SummaryResult is the response of Summarize
type SummaryResult struct {
	Summary string      `json:"summary"`
	Memo    domain.Memo `json:"memo"`
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token on every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client is the remote memo service
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  *logrus.Logger
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMemos returns every memo, newest first
func (c *Client) FetchMemos(ctx context.Context) ([]domain.Memo, error) {
	var memos []domain.Memo
	if err := c.do(ctx, http.MethodGet, "/api/memos", nil, &memos); err != nil {
		return nil, err
	}
	for i := range memos {
		normalize(&memos[i])
	}
	return memos, nil
}

// CountMemos counts remote memos by listing them
func (c *Client) CountMemos(ctx context.Context) (int, error) {
	memos, err := c.FetchMemos(ctx)
	if err != nil {
		return 0, err
	}
	return len(memos), nil
}

// GetMemo retrieves a memo by ID
func (c *Client) GetMemo(ctx context.Context, id string) (*domain.Memo, error) {
	var memo domain.Memo
	if err := c.do(ctx, http.MethodGet, memoPath(id), nil, &memo); err != nil {
		return nil, err
	}
	normalize(&memo)
	return &memo, nil
}

// CreateMemo creates a new memo
func (c *Client) CreateMemo(ctx context.Context, input domain.MemoInput) (*domain.Memo, error) {
	if input.Tags == nil {
		input.Tags = []string{}
	}
	var memo domain.Memo
	if err := c.do(ctx, http.MethodPost, "/api/memos", input, &memo); err != nil {
		return nil, err
	}
	normalize(&memo)
	return &memo, nil
}

// UpdateMemo sends only the fields present in patch
func (c *Client) UpdateMemo(ctx context.Context, id string, patch domain.MemoPatch) (*domain.Memo, error) {
	body := map[string]interface{}{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Content != nil {
		body["content"] = *patch.Content
	}
	if patch.Category != nil {
		body["category"] = *patch.Category
	}
	if patch.Tags != nil {
		body["tags"] = patch.Tags
	}
	return c.patch(ctx, id, body)
}

// UpdateSummary replaces only the summary
func (c *Client) UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error) {
	return c.patch(ctx, id, map[string]interface{}{"summary": summary})
}

// DeleteMemo deletes a memo
func (c *Client) DeleteMemo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, memoPath(id), nil, nil)
}

// GenerateTags asks the server for AI suggested tags
func (c *Client) GenerateTags(ctx context.Context, title, content string) ([]string, error) {
	var resp struct {
		Tags []string `json:"tags"`
	}
	body := map[string]string{"title": title, "content": content}
	if err := c.do(ctx, http.MethodPost, "/api/memos/tags", body, &resp); err != nil {
		return nil, err
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp.Tags, nil
}

// Summarize asks the server to generate and store a summary
func (c *Client) Summarize(ctx context.Context, id, title, content string) (*SummaryResult, error) {
	var resp SummaryResult
	body := map[string]string{"id": id, "title": title, "content": content}
	if err := c.do(ctx, http.MethodPost, "/api/memos/summary", body, &resp); err != nil {
		return nil, err
	}
	normalize(&resp.Memo)
	return &resp, nil
}

func (c *Client) patch(ctx context.Context, id string, body map[string]interface{}) (*domain.Memo, error) {
	var memo domain.Memo
	if err := c.do(ctx, http.MethodPatch, memoPath(id), body, &memo); err != nil {
		return nil, err
	}
	normalize(&memo)
	return &memo, nil
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
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.WithError(err).WithField("path", path).Error("APIサーバーへの接続に失敗しました")
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", domain.ErrStorage, err)
	}
	return nil
}

// decodeError reads {error, message} from JSON bodies; anything else becomes a generic server error
func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("server error (%d)", resp.StatusCode),
		kind:    kindFor(resp.StatusCode),
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return apiErr
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return apiErr
	}
	apiErr.Message = body.Error
	if body.Message != "" {
		apiErr.Message += ": " + body.Message
	}
	return apiErr
}

func kindFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return domain.ErrMemoNotFound
	case http.StatusBadRequest:
		return domain.ErrValidation
	default:
		return domain.ErrStorage
	}
}

func memoPath(id string) string {
	return "/api/memos/" + url.PathEscape(id)
}

func normalize(m *domain.Memo) {
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.Summary != nil && *m.Summary == "" {
		m.Summary = nil
	}
}

// IsNotFound reports whether err is a not-found response
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrMemoNotFound)
}
