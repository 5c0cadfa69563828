// Package memory is an in-process implementation of port.Store.
// It is NOT persistent and is only suitable for development, tests and the CLI.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// Store keeps sessions, messages, quotes and payments in maps guarded by one RWMutex.
// Values are copied on the way in and out, so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	messages map[string][]domain.Message
	quotes   map[string][]domain.QuoteRecord
	payments map[string][]domain.PaymentRecord
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]domain.Session),
		messages: make(map[string][]domain.Message),
		quotes:   make(map[string][]domain.QuoteRecord),
		payments: make(map[string][]domain.PaymentRecord),
		now:      time.Now,
	}
}

// CreateSession stores a new session. An existing ID is a conflict.
func (s *Store) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return &domain.ErrConflict{Message: "session already exists: " + session.ID}
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	s.sessions[session.ID] = copySession(*session)
	return nil
}

// GetSession returns a copy of the stored session.
func (s *Store) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	out := copySession(sess)
	return &out, nil
}

// UpdateSession overwrites state and mode, last write wins. Version and
// UpdatedAt are bumped on both the stored copy and the argument.
func (s *Store) UpdateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.ID]
	if !ok {
		return &domain.ErrNotFound{Resource: "session", ID: session.ID}
	}
	session.CreatedAt = stored.CreatedAt
	session.Version = stored.Version + 1
	session.UpdatedAt = s.now().UTC()
	s.sessions[session.ID] = copySession(*session)
	return nil
}

// AppendMessage appends to the session log.
func (s *Store) AppendMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[msg.SessionID]; !ok {
		return &domain.ErrNotFound{Resource: "session", ID: msg.SessionID}
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], copyMessage(*msg))
	return nil
}

// ListMessages returns the session log in insertion order.
func (s *Store) ListMessages(_ context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

// SaveQuote records a quote snapshot.
func (s *Store) SaveQuote(_ context.Context, q *domain.QuoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now().UTC()
	}
	s.quotes[q.SessionID] = append(s.quotes[q.SessionID], *q)
	return nil
}

// ListQuotes returns the quote snapshots of a session, oldest first.
func (s *Store) ListQuotes(_ context.Context, sessionID string) ([]domain.QuoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.QuoteRecord{}, s.quotes[sessionID]...), nil
}

// SavePayment records a payment snapshot.
func (s *Store) SavePayment(_ context.Context, p *domain.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.payments[p.SessionID] = append(s.payments[p.SessionID], *p)
	return nil
}

// Payments returns the payment snapshots of a session.
func (s *Store) Payments(sessionID string) []domain.PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.PaymentRecord{}, s.payments[sessionID]...)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func copySession(s domain.Session) domain.Session {
	s.State = s.State.Clone()
	return s
}

func copyMessage(m domain.Message) domain.Message {
	if m.QuickReplies != nil {
		m.QuickReplies = append([]domain.QuickReply(nil), m.QuickReplies...)
	}
	if m.Cards != nil {
		m.Cards = append([]domain.Card(nil), m.Cards...)
	}
	return m
}
