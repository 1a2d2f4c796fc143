// Package backend is the client for the restoration backend's REST API and
// the forms and loaders the dashboard pages build on it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout applies when no http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// Collaborator endpoints, relative to the base URL.
const (
	pathMemorials     = "/memorials/"
	pathCustomers     = "/customers/"
	pathCemeteries    = "/cemeteries/"
	pathTechnicians   = "/technicians/"
	pathServices      = "/scheduling/services/"
	pathSummary       = "/dashboard/summary/"
	pathCreateService = "/scheduling/services/create/"
	pathAssignFmt     = "/manager/services/%d/assign/"
	pathSendEmail     = "/emails/send/"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// Client talks to the backend. It never retries.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8000/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Memorials lists memorial summaries.
func (c *Client) Memorials(ctx context.Context) ([]Memorial, error) {
	var out []Memorial
	err := c.get(ctx, pathMemorials, &out)
	return out, err
}

// Customers lists customer summaries.
func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	err := c.get(ctx, pathCustomers, &out)
	return out, err
}

// Cemeteries lists cemetery summaries.
func (c *Client) Cemeteries(ctx context.Context) ([]Cemetery, error) {
	var out []Cemetery
	err := c.get(ctx, pathCemeteries, &out)
	return out, err
}

// Technicians lists active technicians.
func (c *Client) Technicians(ctx context.Context) ([]Technician, error) {
	var out []Technician
	err := c.get(ctx, pathTechnicians, &out)
	return out, err
}

// Services lists open scheduling services.
func (c *Client) Services(ctx context.Context) ([]SchedulingService, error) {
	var out []SchedulingService
	err := c.get(ctx, pathServices, &out)
	return out, err
}

// Summary fetches the dashboard summary.
func (c *Client) Summary(ctx context.Context) (DashboardSummary, error) {
	var out DashboardSummary
	err := c.get(ctx, pathSummary, &out)
	return out, err
}

// CreateService creates a draft service for a memorial.
func (c *Client) CreateService(ctx context.Context, req CreateServiceRequest) (SchedulingService, error) {
	if err := req.Validate(); err != nil {
		return SchedulingService{}, err
	}
	var env serviceEnvelope
	err := c.post(ctx, pathCreateService, req, &env, func(code int, body []byte) string {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		return fmt.Sprintf("Create failed (%d)", code)
	})
	return env.Service, err
}

// AssignTechnician schedules service id.
func (c *Client) AssignTechnician(ctx context.Context, id int64, req AssignRequest) (SchedulingService, error) {
	var env serviceEnvelope
	err := c.post(ctx, fmt.Sprintf(pathAssignFmt, id), req, &env, func(code int, body []byte) string {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		return fmt.Sprintf("Assign failed (%d)", code)
	})
	return env.Service, err
}

// SendEmail sends a message to the selected customers.
func (c *Client) SendEmail(ctx context.Context, req EmailRequest) (EmailResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out EmailResult
	err := c.post(ctx, pathSendEmail, req, &out, func(code int, body []byte) string {
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
			return detail.Detail
		}
		return fmt.Sprintf("Send failed (%d)", code)
	})
	return out, err
}

func (c *Client) url(path string) string {
	return c.base + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any, failure func(int, []byte) string) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, failure)
}

// do sends req and decodes a 2xx body into out. failure, if non-nil, builds
// the message for non-2xx responses; the default is "API error: <code>".
func (c *Client) do(req *http.Request, out any, failure func(int, []byte) string) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend: request failed",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend: response",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := "API error: " + strconv.Itoa(resp.StatusCode)
		if failure != nil {
			msg = failure(resp.StatusCode, body)
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
