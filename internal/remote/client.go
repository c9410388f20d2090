// Package remote talks to the CRM microservices that own each collection.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

// DefaultTimeout bounds one remote call when the caller sets no deadline.
const DefaultTimeout = 10 * time.Second

const (
	maxErrorBody    = 4 << 10
	deleteFanout    = 4
	userAgentHeader = "odyssey-crm"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// ValidationError carries field level messages keyed by field path from a
// rejected write.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = key + ": " + e.Fields[key]
	}
	return "remote: validation failed: " + strings.Join(parts, "; ")
}

// Client issues JSON requests against service endpoints.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Client. A nil httpClient gets DefaultTimeout.
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, logger: logger}
}

// FetchCollection GETs endpoint and decodes a JSON array of rows. Paged
// envelopes carrying the array under "data", "content" or "items" are
// unwrapped.
func (c *Client) FetchCollection(ctx context.Context, endpoint string) ([]listview.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgentHeader)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: GET %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	rows, err := DecodeRows(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: GET %s: %w", endpoint, err)
	}
	c.logger.Debug("remote collection fetched",
		slog.String("endpoint", endpoint),
		slog.Int("rows", len(rows)),
		slog.Duration("took", time.Since(start)),
	)
	return rows, nil
}

// DeleteMany issues DELETE endpoint/{id} for every id with bounded
// concurrency. The first failure cancels the remaining calls.
func (c *Client) DeleteMany(ctx context.Context, endpoint string, ids []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteFanout)
	base := strings.TrimRight(endpoint, "/")
	for _, id := range ids {
		target := base + "/" + url.PathEscape(id)
		g.Go(func() error {
			return c.do(ctx, http.MethodDelete, target, nil)
		})
	}
	return g.Wait()
}

// Create POSTs body to endpoint. Rejected fields come back as a
// *ValidationError.
func (c *Client) Create(ctx context.Context, endpoint string, body any) error {
	return c.do(ctx, http.MethodPost, endpoint, body)
}

func (c *Client) do(ctx context.Context, method, target string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgentHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkResponse(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
		if fields := decodeFieldErrors(data); len(fields) > 0 {
			return &ValidationError{Fields: fields}
		}
	}
	return &StatusError{
		Method: resp.Request.Method,
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(data)),
	}
}

// decodeFieldErrors accepts {"errors": {"field": "msg"}} and the
// [{"field": "...", "message": "..."}] list form.
func decodeFieldErrors(data []byte) map[string]string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Errors) == 0 {
		return nil
	}
	var byField map[string]string
	if err := json.Unmarshal(envelope.Errors, &byField); err == nil {
		return byField
	}
	var list []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Errors, &list); err != nil {
		return nil
	}
	out := make(map[string]string, len(list))
	for _, item := range list {
		if item.Field != "" {
			out[item.Field] = item.Message
		}
	}
	return out
}

var errNotCollection = errors.New("response is not a JSON array")

// DecodeRows reads a JSON array of objects, or an envelope holding one.
// Numbers decode to int64 when integral and float64 otherwise.
func DecodeRows(r io.Reader) ([]listview.Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	items, ok := raw.([]any)
	if !ok {
		obj, isObj := raw.(map[string]any)
		if !isObj {
			return nil, errNotCollection
		}
		for _, key := range []string{"data", "content", "items"} {
			if inner, found := obj[key].([]any); found {
				items, ok = inner, true
				break
			}
		}
		if !ok {
			return nil, errNotCollection
		}
	}
	rows := make([]listview.Row, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, listview.Row(normalize(obj).(map[string]any)))
	}
	return rows, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for key, value := range t {
			t[key] = normalize(value)
		}
		return t
	case []any:
		for i, value := range t {
			t[i] = normalize(value)
		}
		return t
	default:
		return v
	}
}
