package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const sessionTimeLayout = "2006-01-02 15:04:05"

// SessionAwaitingCategory is a photo that arrived without a usable caption
// and waits for the user to pick a meal category.
const SessionAwaitingCategory = "awaiting_category"

// Session represents a pending conversation step for a Telegram user.
type Session struct {
	ID          int64
	UserID      string
	SessionType string
	State       string
	ContextData string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionContextData holds structured data stored in the context_data JSON field.
type SessionContextData struct {
	FileID string `json:"file_id"`
	Notes  string `json:"notes,omitempty"`
}

// GetContextData unmarshals the context_data JSON field.
func (s *Session) GetContextData() (SessionContextData, error) {
	var data SessionContextData
	err := json.Unmarshal([]byte(s.ContextData), &data)
	return data, err
}

// SessionRepository persists sessions in the telegram_sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create replaces any session of the same type for userID and returns the
// new session's ID.
func (sr *SessionRepository) Create(ctx context.Context, userID, sessionType, state string, contextData SessionContextData, ttl time.Duration, now time.Time) (int64, error) {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal session context: %w", err)
	}

	if _, err := sr.db.ExecContext(ctx,
		`DELETE FROM telegram_sessions WHERE user_id = ? AND session_type = ?`,
		userID, sessionType); err != nil {
		return 0, fmt.Errorf("failed to clear previous session: %w", err)
	}

	res, err := sr.db.ExecContext(ctx,
		`INSERT INTO telegram_sessions (user_id, session_type, state, context_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sessionType, state, string(jsonData),
		now.UTC().Add(ttl).Format(sessionTimeLayout), now.UTC().Format(sessionTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return res.LastInsertId()
}

// GetActive retrieves the most recent non-expired session of sessionType for
// a user, or nil when there is none.
func (sr *SessionRepository) GetActive(ctx context.Context, userID, sessionType string, now time.Time) (*Session, error) {
	row := sr.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_type, state, context_data, expires_at, created_at
		FROM telegram_sessions
		WHERE user_id = ? AND session_type = ? AND expires_at > ?
		ORDER BY id DESC LIMIT 1`,
		userID, sessionType, now.UTC().Format(sessionTimeLayout))

	var (
		s                  Session
		expires, createdAt string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SessionType, &s.State, &s.ContextData, &expires, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	s.ExpiresAt, _ = time.Parse(sessionTimeLayout, expires)
	s.CreatedAt, _ = time.Parse(sessionTimeLayout, createdAt)
	return &s, nil
}

// Delete removes a session.
func (sr *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	if _, err := sr.db.ExecContext(ctx, `DELETE FROM telegram_sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes all sessions that expired before now.
func (sr *SessionRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := sr.db.ExecContext(ctx,
		`DELETE FROM telegram_sessions WHERE expires_at <= ?`, now.UTC().Format(sessionTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.RowsAffected()
}
