// Package sqlite is a file-backed implementation of port.Store on the
// pure-Go modernc.org/sqlite driver. State, quick replies and cards are kept
// as JSON text columns.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

var tracer = otel.Tracer("store/sqlite")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	current_mode TEXT NOT NULL DEFAULT '',
	version      INTEGER NOT NULL DEFAULT 0,
	state        TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS messages (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	id               TEXT NOT NULL,
	session_id       TEXT NOT NULL REFERENCES sessions(id),
	role             TEXT NOT NULL,
	content          TEXT NOT NULL,
	mode             TEXT NOT NULL DEFAULT '',
	quick_replies    TEXT NOT NULL DEFAULT 'null',
	cards            TEXT NOT NULL DEFAULT 'null',
	multi_select     INTEGER NOT NULL DEFAULT 0,
	show_brand_logos INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
CREATE TABLE IF NOT EXISTS quotes (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS payments (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// Store implements port.Store on a single SQLite file.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open creates (if needed) and migrates the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON"} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debug("sqlite pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}

	logger.Info("sqlite store ready", zap.String("path", path))
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateSession inserts a new session. An existing ID is a conflict.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	ctx, span := tracer.Start(ctx, "CreateSession")
	defer span.End()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	state, err := sonic.MarshalString(session.State)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at, current_mode, version, state)
		 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		session.ID, formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
		string(session.CurrentMode), session.Version, state,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrConflict{Message: "session already exists: " + session.ID}
	}
	return nil
}

// GetSession loads a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "GetSession")
	defer span.End()

	var (
		sess               domain.Session
		created, updated   string
		mode, stateEncoded string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, current_mode, version, state FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &created, &updated, &mode, &sess.Version, &stateEncoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	sess.CurrentMode = domain.Mode(mode)
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	if err := sonic.UnmarshalString(stateEncoded, &sess.State); err != nil {
		return nil, fmt.Errorf("decoding state of session %s: %w", id, err)
	}
	return &sess, nil
}

// UpdateSession overwrites mode and state and bumps version, last write wins.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	ctx, span := tracer.Start(ctx, "UpdateSession")
	defer span.End()

	state, err := sonic.MarshalString(session.State)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	now := s.now().UTC()

	var version int
	var created string
	err = s.db.QueryRowContext(ctx,
		`UPDATE sessions SET current_mode = ?, state = ?, version = version + 1, updated_at = ?
		 WHERE id = ? RETURNING version, created_at`,
		string(session.CurrentMode), state, formatTime(now), session.ID,
	).Scan(&version, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ErrNotFound{Resource: "session", ID: session.ID}
	}
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	session.Version = version
	session.UpdatedAt = now
	session.CreatedAt = parseTime(created)
	return nil
}

// AppendMessage appends to the session log.
func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	ctx, span := tracer.Start(ctx, "AppendMessage")
	defer span.End()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	replies, err := sonic.MarshalString(msg.QuickReplies)
	if err != nil {
		return fmt.Errorf("encoding quick replies: %w", err)
	}
	cards, err := sonic.MarshalString(msg.Cards)
	if err != nil {
		return fmt.Errorf("encoding cards: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, mode, quick_replies, cards, multi_select, show_brand_logos, created_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM sessions WHERE id = ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, string(msg.Mode), replies, cards,
		msg.MultiSelect, msg.ShowBrandLogos, formatTime(msg.CreatedAt), msg.SessionID,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "session", ID: msg.SessionID}
	}
	return nil
}

// ListMessages returns the session log in insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "ListMessages")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, mode, quick_replies, cards, multi_select, show_brand_logos, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var (
			m                     domain.Message
			role, mode            string
			replies, cards, stamp string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &mode, &replies, &cards,
			&m.MultiSelect, &m.ShowBrandLogos, &stamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = domain.Role(role)
		m.Mode = domain.Mode(mode)
		m.CreatedAt = parseTime(stamp)
		if err := sonic.UnmarshalString(replies, &m.QuickReplies); err != nil {
			return nil, fmt.Errorf("decoding quick replies: %w", err)
		}
		if err := sonic.UnmarshalString(cards, &m.Cards); err != nil {
			return nil, fmt.Errorf("decoding cards: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SaveQuote records a quote snapshot.
func (s *Store) SaveQuote(ctx context.Context, q *domain.QuoteRecord) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now().UTC()
	}
	return s.insertSnapshot(ctx, "quotes", q.ID, q.SessionID, q.CreatedAt, q)
}

// ListQuotes returns the quote snapshots of a session, oldest first.
func (s *Store) ListQuotes(ctx context.Context, sessionID string) ([]domain.QuoteRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM quotes WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	out := []domain.QuoteRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		var q domain.QuoteRecord
		if err := sonic.UnmarshalString(payload, &q); err != nil {
			return nil, fmt.Errorf("decoding quote: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SavePayment records a payment snapshot.
func (s *Store) SavePayment(ctx context.Context, p *domain.PaymentRecord) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	return s.insertSnapshot(ctx, "payments", p.ID, p.SessionID, p.CreatedAt, p)
}

func (s *Store) insertSnapshot(ctx context.Context, table, id, sessionID string, at time.Time, v any) error {
	ctx, span := tracer.Start(ctx, "insert "+table)
	defer span.End()

	payload, err := sonic.MarshalString(v)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", table, err)
	}
	// table is one of two constants above, never user input.
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (id, session_id, payload, created_at) VALUES (?, ?, ?, ?)",
		id, sessionID, payload, formatTime(at),
	); err != nil {
		return fmt.Errorf("inserting %s record: %w", table, err)
	}
	s.logger.Debug("snapshot stored", zap.String("table", table), zap.String("session_id", sessionID))
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
