// Package helpdesk is a Go client for the helpdesk API. It owns the session
// (token, role, display name), validates input before sending, and reports
// every failure as a typed error.
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to one helpdesk server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionStore sets where the session is persisted. The default is a MemoryStore.
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) { c.store = store }
}

// WithLogger enables debug logging of requests.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("helpdesk: invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: http.DefaultClient,
		store:      NewMemoryStore(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type body struct {
	contentType string
	reader      io.Reader
}

// formBody encodes plain fields as multipart/form-data, the encoding every
// write endpoint accepts. Writing fields to memory cannot fail.
func formBody(values url.Values) *body {
	b, _ := multipartBody(values, nil)
	return b
}

// Attachment is a file sent with a multipart request.
type Attachment struct {
	Name   string
	Reader io.Reader
}

func multipartBody(fields url.Values, file *Attachment) (*body, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, err
			}
		}
	}
	if file != nil {
		part, err := w.CreateFormFile("file", file.Name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &body{contentType: w.FormDataContentType(), reader: &buf}, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call sends one request and decodes the "data" member into out.
func (c *Client) call(ctx context.Context, method, path string, in *body, authed bool, out any) error {
	resp, err := c.send(ctx, method, path, in, authed)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Kind: KindServer, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Kind: KindServer, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// download fetches a raw body and the filename advertised by the server.
func (c *Client) download(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, "", decodeError(resp.StatusCode, raw)
	}
	name := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	return raw, name, nil
}

func (c *Client) send(ctx context.Context, method, path string, in *body, authed bool) (*http.Response, error) {
	var token string
	if authed {
		session, err := c.store.Load()
		if err != nil {
			return nil, err
		}
		if session.Empty() {
			return nil, ErrNoSession
		}
		token = session.Token
	}

	var reader io.Reader
	if in != nil {
		reader = in.reader
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", in.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, &APIError{Kind: KindTransport, Err: err}
	}
	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func decodeError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	apiErr.Kind = kindFor(status, apiErr.Code)
	return apiErr
}
