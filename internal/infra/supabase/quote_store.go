package supabase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
)

// ============================================================
// port.Store implementation over PostgREST
// ============================================================

// --- Sessions ---

// CreateSession inserts a session row.
func (c *Client) CreateSession(ctx context.Context, session *domain.Session) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", session.ID))

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	err := c.write(func() error {
		_, err := c.do(ctx, http.MethodPost, tableSessions, filter{}, session)
		return err
	})
	if errors.Is(err, errDuplicate) {
		return &domain.ErrConflict{Message: "session already exists: " + session.ID}
	}
	return c.wrap("supabase/sessions", err)
}

// GetSession loads one session row.
func (c *Client) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	rows, err := resilience.Call(ctx, c.cb, c.cfg, func(ctx context.Context) ([]domain.Session, error) {
		return decodeRows[domain.Session](c.do(ctx, http.MethodGet, tableSessions, where().eq("id", id).limit(1), nil))
	})
	if err != nil {
		return nil, c.wrap("supabase/sessions", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	return &rows[0], nil
}

// UpdateSession overwrites mode and state, last write wins.
func (c *Client) UpdateSession(ctx context.Context, session *domain.Session) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", session.ID))

	now := time.Now().UTC()
	patch := map[string]any{
		"current_mode": session.CurrentMode,
		"state":        session.State,
		"version":      session.Version + 1,
		"updated_at":   now,
	}

	var rows []domain.Session
	err := c.write(func() error {
		var err error
		rows, err = decodeRows[domain.Session](c.do(ctx, http.MethodPatch, tableSessions, where().eq("id", session.ID), patch))
		return err
	})
	if err != nil {
		return c.wrap("supabase/sessions", err)
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "session", ID: session.ID}
	}

	session.Version = rows[0].Version
	session.UpdatedAt = now
	session.CreatedAt = rows[0].CreatedAt
	return nil
}

// --- Messages ---

// AppendMessage inserts one message row.
func (c *Client) AppendMessage(ctx context.Context, msg *domain.Message) error {
	ctx, span := tracer.Start(ctx, "Supabase.AppendMessage")
	defer span.End()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	err := c.write(func() error {
		_, err := c.do(ctx, http.MethodPost, tableMessages, filter{}, msg)
		return err
	})
	return c.wrap("supabase/messages", err)
}

// ListMessages returns the session log ordered by creation time.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMessages")
	defer span.End()

	rows, err := resilience.Call(ctx, c.cb, c.cfg, func(ctx context.Context) ([]domain.Message, error) {
		return decodeRows[domain.Message](c.do(ctx, http.MethodGet, tableMessages, where().eq("session_id", sessionID).oldestFirst(), nil))
	})
	if err != nil {
		return nil, c.wrap("supabase/messages", err)
	}
	return rows, nil
}

// --- Snapshots ---

// SaveQuote inserts a quote snapshot.
func (c *Client) SaveQuote(ctx context.Context, q *domain.QuoteRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveQuote")
	defer span.End()

	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	err := c.write(func() error {
		_, err := c.do(ctx, http.MethodPost, tableQuotes, filter{}, q)
		return err
	})
	return c.wrap("supabase/quotes", err)
}

// ListQuotes returns the quote snapshots of a session, oldest first.
func (c *Client) ListQuotes(ctx context.Context, sessionID string) ([]domain.QuoteRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListQuotes")
	defer span.End()

	rows, err := resilience.Call(ctx, c.cb, c.cfg, func(ctx context.Context) ([]domain.QuoteRecord, error) {
		return decodeRows[domain.QuoteRecord](c.do(ctx, http.MethodGet, tableQuotes, where().eq("session_id", sessionID).oldestFirst(), nil))
	})
	if err != nil {
		return nil, c.wrap("supabase/quotes", err)
	}
	return rows, nil
}

// SavePayment inserts a payment snapshot.
func (c *Client) SavePayment(ctx context.Context, p *domain.PaymentRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.SavePayment")
	defer span.End()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := c.write(func() error {
		_, err := c.do(ctx, http.MethodPost, tablePayments, filter{}, p)
		return err
	})
	return c.wrap("supabase/payments", err)
}

// write runs a non-idempotent request behind the breaker without retries.
func (c *Client) write(fn func() error) error {
	return resilience.Once(c.cb, fn)
}

// wrap keeps domain errors as they are and reports the rest as an external failure.
func (c *Client) wrap(service string, err error) error {
	if err == nil {
		return nil
	}
	var nf *domain.ErrNotFound
	var co *domain.ErrCircuitOpen
	var cf *domain.ErrConflict
	if errors.As(err, &nf) || errors.As(err, &co) || errors.As(err, &cf) || errors.Is(err, errDuplicate) {
		return err
	}
	c.logger.Error("supabase: store call failed", zap.String("service", service), zap.Error(err))
	return &domain.ErrExternalService{Service: service, Err: err}
}
