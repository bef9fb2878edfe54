// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/util"
)

// Configuration constants for the Cauris REST API.
const (
	// DefaultBaseURL is the REST root of a local backend.
	DefaultBaseURL = "http://localhost:8000/api/v1"

	// maxRawDetailWidth caps a non-JSON error body kept in APIError.Detail.
	maxRawDetailWidth = 200

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultUploadTimeout bounds document uploads.
	DefaultUploadTimeout = 5 * time.Minute

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	// DefaultRole is what signup sends when no role is given.
	DefaultRole = "student"

	// Password bounds enforced by the backend (bcrypt truncates at 72).
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// Error variables for common API failures.
var (
	// ErrUnauthorized indicates a missing, expired or rejected token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadRequest indicates the server refused the request as invalid
	// (wrong credentials, duplicate e-mail, non-PDF upload...).
	ErrBadRequest = errors.New("bad request")

	// ErrFetchFailed wraps every failed history fetch.
	ErrFetchFailed = errors.New("history fetch failed")

	// ErrNoToken indicates an authenticated call was made without a token.
	ErrNoToken = errors.New("no bearer token")

	// ErrInvalidInput indicates client-side validation failed before any
	// request was sent.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("cauris API error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("cauris API error (HTTP %d): %s", e.Status, e.Detail)
}

// Unwrap maps the status to ErrUnauthorized or ErrBadRequest so callers can
// use errors.Is while still reading Detail through errors.As.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadRequest
	}
	return nil
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SignupRequest registers a new account.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Validate checks what the backend would reject, before the round trip.
func (r SignupRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("%w: e-mail address %q looks wrong", ErrInvalidInput, r.Email)
	}
	if n := len(r.Password); n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("%w: password must be %d to %d characters", ErrInvalidInput, MinPasswordLen, MaxPasswordLen)
	}
	if strings.TrimSpace(r.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	return nil
}

// UploadResult is the ingestion service's acknowledgement.
type UploadResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

// historyItem is the wire shape of one history row. created_at is a naive
// ISO timestamp (UTC, no zone), which time.Time cannot decode directly.
type historyItem struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CreatedAt string `json:"created_at"`
}

var serverTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseServerTime(s string) time.Time {
	for _, layout := range serverTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Cauris REST API. It is safe for concurrent use; the
// token is fixed at construction (use WithToken for a copy with another).
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *zap.Logger
}

// NewClient creates a client for baseURL (e.g. http://localhost:8000/api/v1).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Transport: transport, Timeout: DefaultTimeout},
		uploadClient: &http.Client{Transport: transport, Timeout: DefaultUploadTimeout},
		logger:       zap.NewNop(),
	}
}

// WithToken returns a copy of the client that sends token as bearer.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// WithTimeout sets the timeout for non-upload requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = timeout
	c.httpClient = &hc
	return c
}

// WithUploadTimeout sets the timeout for document uploads.
func (c *Client) WithUploadTimeout(timeout time.Duration) *Client {
	hc := *c.uploadClient
	hc.Timeout = timeout
	c.uploadClient = &hc
	return c
}

// WithTLSConfig sets the TLS settings used for https endpoints.
func (c *Client) WithTLSConfig(config *tls.Config) *Client {
	if t, ok := c.httpClient.Transport.(*http.Transport); ok && config != nil {
		tr := t.Clone()
		tr.TLSClientConfig = config
		hc, uc := *c.httpClient, *c.uploadClient
		hc.Transport, uc.Transport = tr, tr
		c.httpClient, c.uploadClient = &hc, &uc
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger.Named("api")
	}
	return c
}

// BaseURL returns the REST root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasToken reports whether authenticated calls can be made.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges e-mail and password for a bearer token. The backend
// expects an OAuth2 password form where the e-mail is the username.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tok Token
	err := c.do(ctx, c.httpClient, http.MethodPost, "/auth/login", false,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &tok)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("login failed: empty access token in response")
	}
	return &tok, nil
}

// Signup creates an account. It does not log in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	if req.Role == "" {
		req.Role = DefaultRole
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp messageResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/auth/signup", false,
		bytes.NewReader(body), "application/json", &resp); err != nil {
		return "", fmt.Errorf("signup failed: %w", err)
	}
	return resp.Message, nil
}

// =============================================================================
// CHAT
// =============================================================================

// History returns the signed-in user's Q&A history in server order
// (oldest first). Every failure wraps ErrFetchFailed.
func (c *Client) History(ctx context.Context) ([]model.HistoryEntry, error) {
	var items []historyItem
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/chat/history", true, nil, "", &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	entries := make([]model.HistoryEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, model.HistoryEntry{
			ID:        it.ID,
			UserID:    it.UserID,
			Question:  it.Question,
			Answer:    it.Answer,
			CreatedAt: parseServerTime(it.CreatedAt),
		})
	}
	return entries, nil
}

// Query asks a single question over plain HTTP and returns the answer.
func (c *Client) Query(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", ErrInvalidInput)
	}

	body, err := json.Marshal(queryRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp queryResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/chat/query", true,
		bytes.NewReader(body), "application/json", &resp); err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	return resp.Answer, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Upload sends doc to the ingestion service as multipart field "file". The
// part carries the document's content type; the server rejects anything
// but application/pdf.
func (c *Client) Upload(ctx context.Context, doc *model.Document) (*UploadResult, error) {
	if doc == nil || doc.Name == "" {
		return nil, fmt.Errorf("%w: no document", ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Name))
	header.Set("Content-Type", doc.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var result UploadResult
	if err := c.do(ctx, c.uploadClient, http.MethodPost, "/documents/upload", true,
		&buf, mw.FormDataContentType(), &result); err != nil {
		return nil, fmt.Errorf("upload of %s failed: %w", doc.Name, err)
	}
	return &result, nil
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, auth bool, body io.Reader, contentType string, out any) error {
	if auth && c.token == "" {
		return ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	// Keep the token out of anything that might log the request later
	req.Header.Del("Authorization")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse builds an APIError from a FastAPI error body. detail
// is either a string or a list of validation errors.
func handleErrorResponse(status int, body []byte) error {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	apiErr := &APIError{Status: status}

	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var text string
		if json.Unmarshal(envelope.Detail, &text) == nil {
			apiErr.Detail = text
			return apiErr
		}
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if json.Unmarshal(envelope.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				field := ""
				if n := len(it.Loc); n > 0 {
					field = fmt.Sprint(it.Loc[n-1]) + ": "
				}
				msgs = append(msgs, field+it.Msg)
			}
			apiErr.Detail = strings.Join(msgs, "; ")
			return apiErr
		}
	}

	// Raw bodies (proxy pages, tracebacks) are cut on a rune boundary
	apiErr.Detail = util.TruncateWidth(util.SingleLine(string(body)), maxRawDetailWidth)
	return apiErr
}
