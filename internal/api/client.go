// Package api is the HTTP client for the temperature sensor backend's REST
// endpoints.
package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/tempdash/internal/sensor"
)

const (
	DefaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-Id"
	maxErrorBody    = 64 << 10
)

// Endpoint paths, relative to the API base URL.
const (
	PathDevices             = "/devices"
	PathTemperatureReadings = "/temperature-readings"
	PathGetSimulated        = "/get-simulated-sensor-settings"
	PathSetSimulated        = "/set-simulated-sensor-settings"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the backend's own error text when err carries one,
// otherwise err's message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// Client talks to the backend over JSON/HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the API rooted at baseURL (origin plus prefix,
// e.g. http://localhost:8000/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Devices lists the ids of all known devices.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	var devices []string
	if err := c.do(ctx, http.MethodGet, PathDevices, nil, nil, &devices); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devices, nil
}

// Readings fetches up to limit of the most recent readings for a device.
func (c *Client) Readings(ctx context.Context, deviceID string, limit int) ([]sensor.Reading, error) {
	q := url.Values{}
	q.Set("device_id", deviceID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var readings []sensor.Reading
	if err := c.do(ctx, http.MethodGet, PathTemperatureReadings, q, nil, &readings); err != nil {
		return nil, fmt.Errorf("fetching readings for %s: %w", deviceID, err)
	}
	return readings, nil
}

// SimulatedSettings reads the simulated sensor settings of a device. The
// backend also broadcasts them as a settings-updated event; an empty body
// yields zero settings for the device.
func (c *Client) SimulatedSettings(ctx context.Context, deviceID string) (sensor.Settings, error) {
	q := url.Values{}
	q.Set("device_id", deviceID)

	var s sensor.Settings
	if err := c.do(ctx, http.MethodGet, PathGetSimulated, q, nil, &s); err != nil {
		return sensor.Settings{}, fmt.Errorf("reading settings for %s: %w", deviceID, err)
	}
	if s.DeviceID == "" {
		s.DeviceID = deviceID
	}
	return s, nil
}

// SetSimulatedSettings updates the simulated sensor settings of a device.
func (c *Client) SetSimulatedSettings(ctx context.Context, s sensor.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, PathSetSimulated, nil, s, nil); err != nil {
		return fmt.Errorf("updating settings for %s: %w", s.DeviceID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError prefers the body's "error" field, then "message", then the
// status line.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(data, &body) == nil {
		msg = body.Error
		if msg == "" {
			msg = body.Message
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status code %d", resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}
