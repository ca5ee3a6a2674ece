package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// APIError -> error terstruktur dari Remote Service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote service error (status %d): %s", e.StatusCode, e.Message)
}

// ErrorMessage returns the human readable part of err, preferring the
// message of a remote APIError.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

// envelope sama dengan utils.JSONResponse, tapi Data dibiarkan mentah
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // request per detik, 0 = tanpa batas
}

// Client talks JSON over HTTP to the Remote Service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Create posts a full payload into the collection at level under parentID
// (the business id for menus) and returns the canonical record.
func (c *Client) Create(ctx context.Context, level catalog.Level, parentID string, payload interface{}) (models.Patch, error) {
	endpoint, err := collectionEndpoint(level, parentID)
	if err != nil {
		return nil, err
	}
	var out models.Patch
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update sends a partial patch and returns the canonical record.
func (c *Client) Update(ctx context.Context, level catalog.Level, id string, patch models.Patch) (models.Patch, error) {
	endpoint, err := resourceEndpoint(level, id)
	if err != nil {
		return nil, err
	}
	var out models.Patch
	if err := c.do(ctx, http.MethodPatch, endpoint, patch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, level catalog.Level, id string) error {
	endpoint, err := resourceEndpoint(level, id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// FetchCatalog loads the full menu tree of a business.
func (c *Client) FetchCatalog(ctx context.Context, businessID string) ([]models.Menu, error) {
	var menus []models.Menu
	endpoint := "/businesses/" + url.PathEscape(businessID) + "/menus"
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &menus); err != nil {
		return nil, err
	}
	return menus, nil
}

// SyncResponse -> hasil incremental sync order
type SyncResponse struct {
	Orders    []models.Order `json:"new_or_updated_orders"`
	Timestamp time.Time      `json:"timestamp"`
}

// SyncOrders requests the orders changed since the given time; since nil
// asks for the full window.
func (c *Client) SyncOrders(ctx context.Context, businessID string, since *time.Time) (SyncResponse, error) {
	endpoint := "/businesses/" + url.PathEscape(businessID) + "/orders/sync"
	if since != nil {
		q := url.Values{}
		q.Set("last_sync_time", since.UTC().Format(time.RFC3339Nano))
		endpoint += "?" + q.Encode()
	}
	var resp SyncResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return SyncResponse{}, err
	}
	return resp, nil
}

func collectionEndpoint(level catalog.Level, parentID string) (string, error) {
	if !level.Valid() || parentID == "" {
		return "", fmt.Errorf("remote: invalid create target %s under %q", level, parentID)
	}
	parentCollection := "businesses"
	if level > catalog.LevelMenu {
		parentCollection = (level - 1).Collection()
	}
	return "/" + parentCollection + "/" + url.PathEscape(parentID) + "/" + level.Collection(), nil
}

func resourceEndpoint(level catalog.Level, id string) (string, error) {
	if !level.Valid() || id == "" {
		return "", fmt.Errorf("remote: invalid resource %s %q", level, id)
	}
	return "/" + level.Collection() + "/" + url.PathEscape(id), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("remote: rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"latency":  time.Since(start).String(),
	}).Debug("remote request")

	var env envelope
	decodeErr := decode(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if len(raw) == 0 || out == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("remote: decode response: %w", decodeErr)
	}
	if !env.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := decode(env.Data, out); err != nil {
		return fmt.Errorf("remote: decode data: %w", err)
	}
	return nil
}

// decode -> angka dibaca sebagai json.Number supaya id numerik tidak jadi float
func decode(raw []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
