package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/moments/internal/config"
	"github.com/jon4hz/moments/internal/session"
)

// Client is the moments backend API client. Every call goes through the
// request pipeline, so call sites never deal with identity or 401 handling.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Store
}

// New creates a client whose transport is the full request pipeline on top of base.
// A nil base uses http.DefaultTransport.
func New(cfg *config.APIConfig, store *session.Store, nav Navigator, loginPath string, base http.RoundTripper) *Client {
	transport := Chain(base,
		Trace(),
		ClassifyNetworkErrors(),
		InjectIdentity(store),
		HandleAuthFailure(store, nav, loginPath),
	)
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		session: store,
	}
}

// Session returns the session store the client reads identity from.
func (c *Client) Session() *session.Store {
	return c.session
}

// Do performs an arbitrary JSON API call. query may be nil, body is encoded
// as JSON when not nil and the response is decoded into out when not nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

// Upload posts a multipart form with a single file part. The payload is
// never touched by identity injection, so extra fields have to be passed
// explicitly.
func (c *Client) Upload(ctx context.Context, endpoint, field, filename string, r io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("error writing form field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("error copying file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("error closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(req, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func apiError(req *http.Request, resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
	}

	if resp.StatusCode != http.StatusUnauthorized && apiErr.Message != "" {
		log.Warn("API error", "method", req.Method, "url", req.URL.Path, "status", resp.StatusCode, "error", apiErr.Message)
	}
	return apiErr
}
