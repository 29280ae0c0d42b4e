// Package api is the REST client of the sync backend. Backend records are keyed by
// server ids that are distinct from local ids.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sitewalk/planmark/pkg/core"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// Client handles communication with the sync backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a new API client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProjectPayload is the backend representation of a project.
type ProjectPayload struct {
	LocalID   string   `json:"localId"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
}

// ProjectPayloadFrom maps a local project.
func ProjectPayloadFrom(p core.Project) ProjectPayload {
	out := ProjectPayload{LocalID: p.ID.String(), Name: p.Name, Address: p.Address}
	if p.Site != nil {
		out.Longitude = &p.Site.Longitude
		out.Latitude = &p.Site.Latitude
	}
	return out
}

// DrawingPayload is the backend representation of a drawing.
type DrawingPayload struct {
	LocalID string `json:"localId"`
	Name    string `json:"name"`
	Scale   string `json:"scale,omitempty"`
}

// DrawingPayloadFrom maps a local drawing.
func DrawingPayloadFrom(d core.Drawing) DrawingPayload {
	return DrawingPayload{LocalID: d.ID.String(), Name: d.Name, Scale: d.ScaleLabel()}
}

type created struct {
	ID string `json:"id"`
}

// Healthcheck checks if the backend is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.do(ctx, "healthcheck", http.MethodGet, "/healthcheck", nil, nil)
}

// CreateProject registers a project and returns its server id.
func (c *Client) CreateProject(ctx context.Context, p core.Project) (string, error) {
	var out created
	if err := c.do(ctx, "create project", http.MethodPost, "/projects", ProjectPayloadFrom(p), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateProject replaces the backend copy of a project.
func (c *Client) UpdateProject(ctx context.Context, serverID string, p core.Project) error {
	return c.do(ctx, "update project", http.MethodPut, "/projects/"+url.PathEscape(serverID), ProjectPayloadFrom(p), nil)
}

// DeleteProject removes a project from the backend.
func (c *Client) DeleteProject(ctx context.Context, serverID string) error {
	return c.do(ctx, "delete project", http.MethodDelete, "/projects/"+url.PathEscape(serverID), nil, nil)
}

// CreateDrawing registers a drawing under a synced project and returns its server id.
func (c *Client) CreateDrawing(ctx context.Context, projectServerID string, d core.Drawing) (string, error) {
	var out created
	path := "/projects/" + url.PathEscape(projectServerID) + "/drawings"
	if err := c.do(ctx, "create drawing", http.MethodPost, path, DrawingPayloadFrom(d), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateDrawing replaces the backend copy of a drawing.
func (c *Client) UpdateDrawing(ctx context.Context, serverID string, d core.Drawing) error {
	return c.do(ctx, "update drawing", http.MethodPut, "/drawings/"+url.PathEscape(serverID), DrawingPayloadFrom(d), nil)
}

// DeleteDrawing removes a drawing from the backend.
func (c *Client) DeleteDrawing(ctx context.Context, serverID string) error {
	return c.do(ctx, "delete drawing", http.MethodDelete, "/drawings/"+url.PathEscape(serverID), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RetryableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := classify(op, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// UploadFile sends a file attached to a synced drawing.
func (c *Client) UploadFile(ctx context.Context, drawingServerID, filePath string) error {
	const op = "upload"
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Create multipart form
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	// Write form fields and file in goroutine
	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		_ = writer.WriteField("filename", filepath.Base(filePath))

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			errCh <- fmt.Errorf("failed to copy file: %w", err)
			return
		}
		errCh <- nil
	}()

	path := c.baseURL + "/drawings/" + url.PathEscape(drawingServerID) + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.Close()
		<-errCh
		return &RetryableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// Check goroutine error
	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}
	return classify(op, resp)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// classify maps a response status to the error kinds callers branch on.
func classify(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrServerNotFound)
	case resp.StatusCode >= 500:
		return &RetryableError{Op: op, Status: resp.StatusCode}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
}

// IsNotFound reports whether the backend no longer knows the record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServerNotFound)
}
