package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/harborworks/concierge/internal/core/domain"
)

// SessionRepository persists one conversation history per session as a
// single JSONB document. Whole-history replacement on Put gives
// last-write-wins semantics under concurrent requests for one session.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSessionRepository(db *sql.DB, ttl time.Duration, now func() time.Time) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &SessionRepository{db: db, ttl: ttl, now: now}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	session_id TEXT PRIMARY KEY,
	messages JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_expires_at ON chat_sessions (expires_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure sessions schema: %w", err)
	}
	return tx.Commit()
}

// Get returns the stored history, or an empty one for unknown or expired
// sessions. Expiry is enforced in the query so stale rows are never served
// even before the pruner removes them.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) ([]domain.ConversationMessage, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT messages
FROM chat_sessions
WHERE session_id = $1 AND expires_at > $2
`, sessionID, r.now().UTC())

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var messages []domain.ConversationMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil, fmt.Errorf("decode session messages: %w", err)
	}
	return messages, nil
}

func (r *SessionRepository) Put(ctx context.Context, sessionID string, messages []domain.ConversationMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode session messages: %w", err)
	}

	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO chat_sessions (session_id, messages, updated_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id) DO UPDATE
SET messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
`, sessionID, payload, now, now.Add(r.ttl))
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete session", fmt.Errorf("session not found: id=%s", sessionID))
	}
	return nil
}

// Prune drops expired rows and reports how many were removed.
func (r *SessionRepository) Prune(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE expires_at <= $1`, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions rows affected: %w", err)
	}
	return rows, nil
}
