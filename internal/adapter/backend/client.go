// Package backend implements domain.EventSource against the club REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/observability"
)

const (
	opList  = "list"
	opGet   = "get"
	opLogin = "login"

	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeNotFound = "not_found"

	maxErrorBody = 512
	isoDate      = "2006-01-02"
)

// Client implements domain.EventSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	token string
}

// NewClient creates a backend client. With empty credentials requests are
// sent without an Authorization header.
func NewClient(baseURL string, timeout time.Duration, username, password string, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		username:   username,
		password:   password,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// ListEvents fetches events matching filter. Items that are not JSON objects
// are dropped and logged.
func (c *Client) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.EventRecord, error) {
	params := url.Values{}
	if !filter.StartDate.IsZero() {
		params.Set("start_date", filter.StartDate.Format(isoDate))
	}
	if !filter.EndDate.IsZero() {
		params.Set("end_date", filter.EndDate.Format(isoDate))
	}
	if filter.EventType != "" {
		params.Set("event_type", filter.EventType)
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	u := c.baseURL + "/events"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	body, status, err := c.get(ctx, u)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(opList, outcomeError).Inc()
		return nil, fmt.Errorf("list events: %w", err)
	}
	if status != http.StatusOK {
		c.metrics.BackendRequests.WithLabelValues(opList, outcomeError).Inc()
		return nil, fmt.Errorf("list events: backend status %d: %s", status, truncate(body))
	}

	records, skipped, err := domain.DecodeEventRecords(body)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(opList, outcomeError).Inc()
		return nil, fmt.Errorf("list events: %w", err)
	}
	if skipped > 0 {
		c.logger.Warn("dropped non-object event items", "skipped", skipped)
	}
	c.metrics.BackendRequests.WithLabelValues(opList, outcomeSuccess).Inc()
	return records, nil
}

// GetEvent fetches one event. A 404 maps to domain.ErrEventNotFound.
func (c *Client) GetEvent(ctx context.Context, id string) (domain.EventRecord, error) {
	body, status, err := c.get(ctx, c.baseURL+"/events/"+url.PathEscape(id))
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(opGet, outcomeError).Inc()
		return domain.EventRecord{}, fmt.Errorf("get event %s: %w", id, err)
	}
	switch {
	case status == http.StatusNotFound:
		c.metrics.BackendRequests.WithLabelValues(opGet, outcomeNotFound).Inc()
		return domain.EventRecord{}, fmt.Errorf("get event %s: %w", id, domain.ErrEventNotFound)
	case status != http.StatusOK:
		c.metrics.BackendRequests.WithLabelValues(opGet, outcomeError).Inc()
		return domain.EventRecord{}, fmt.Errorf("get event %s: backend status %d: %s", id, status, truncate(body))
	}

	rec, err := domain.DecodeEventRecord(unwrapSingle(body))
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(opGet, outcomeError).Inc()
		return domain.EventRecord{}, fmt.Errorf("get event %s: %w", id, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	c.metrics.BackendRequests.WithLabelValues(opGet, outcomeSuccess).Inc()
	return rec, nil
}

// get issues an authorized GET. A 401 with a held token drops the token and
// retries once after logging in again.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, int, error) {
	body, status, err := c.doGet(ctx, fullURL)
	if err != nil || status != http.StatusUnauthorized || c.username == "" {
		return body, status, err
	}
	c.logger.Info("backend rejected token, logging in again")
	c.dropToken()
	return c.doGet(ctx, fullURL)
}

func (c *Client) doGet(ctx context.Context, fullURL string) ([]byte, int, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// unwrapSingle returns the inner object of {"event": {...}} or
// {"data": {...}} envelopes, or body unchanged.
func unwrapSingle(body []byte) []byte {
	var env struct {
		Event json.RawMessage `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	for _, inner := range []json.RawMessage{env.Event, env.Data} {
		if t := bytes.TrimSpace(inner); len(t) > 0 && t[0] == '{' {
			return t
		}
	}
	return body
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(bytes.TrimSpace(body))
}
