// Package supabase stores quote sessions, messages and snapshots in a hosted
// Postgres reached through PostgREST.
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("supabase")

const (
	tableSessions = "quote_sessions"
	tableMessages = "quote_messages"
	tableQuotes   = "quote_records"
	tablePayments = "quote_payments"
)

// errDuplicate is returned when an insert hits a unique constraint.
var errDuplicate = errors.New("duplicate key")

// statusError is a non-2xx PostgREST answer.
type statusError struct {
	Method string
	Table  string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Table, e.Status, e.Body)
}

// Client talks to the PostgREST endpoint of a Supabase project.
type Client struct {
	http    *http.Client
	restURL string
	apiKey  string
	bearer  string
	cb      *gobreaker.CircuitBreaker
	cfg     resilience.Config
	logger  *zap.Logger
}

// NewClient creates a Supabase client. Requests authenticate with the
// service role key.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		http:    httpClient,
		restURL: strings.TrimRight(baseURL, "/") + "/rest/v1/",
		apiKey:  apiKey,
		bearer:  "Bearer " + serviceRoleKey,
		cb:      cb,
		cfg:     cfg,
		logger:  logger,
	}
}

// Ping checks that PostgREST answers for the sessions table.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, tableSessions, where().only("id").limit(1), nil)
	return err
}

// do sends one request and returns the response body. Missing rows (404, 204)
// come back as a nil body, unique violations as errDuplicate.
func (c *Client) do(ctx context.Context, method, table string, f filter, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := encodeRow(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s row: %w", table, err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.restURL + table
	if q := f.encode(); q != "" {
		target += "?" + q
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", c.bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("db.table", table), attribute.String("http.method", method))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed", zap.String("method", method), zap.String("table", table), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", table, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode == http.StatusConflict:
		return nil, errDuplicate
	case resp.StatusCode >= 300:
		c.logger.Warn("supabase: unexpected status",
			zap.String("method", method),
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
		return nil, &statusError{Method: method, Table: table, Status: resp.StatusCode, Body: string(data)}
	}

	c.logger.Debug("supabase: ok", zap.String("method", method), zap.String("table", table), zap.Int("status", resp.StatusCode))
	return data, nil
}
