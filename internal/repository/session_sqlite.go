package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/assessio/assessio-backend/internal/model"
)

// SQLiteSessionStore persists sessions in a local SQLite file. It backs
// local-first deployments that must keep an exam running while the server
// stores are unreachable; the schema lives in internal/database.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore creates a new SQLiteSessionStore over an opened DB.
func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// Load retrieves the session for the given key, or ErrNotFound.
func (s *SQLiteSessionStore) Load(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE key = ?`, key.String(),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess model.ExamSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save writes the full session record.
func (s *SQLiteSessionStore) Save(ctx context.Context, sess *model.ExamSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (key, data) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET data = excluded.data`,
		sess.Key().String(), raw,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session record and its working audit log.
func (s *SQLiteSessionStore) Delete(ctx context.Context, key model.SessionKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_audit WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("delete audit: %w", err)
	}
	return tx.Commit()
}

// AppendAudit appends one entry to the session's working audit log.
func (s *SQLiteSessionStore) AppendAudit(ctx context.Context, key model.SessionKey, entry model.AuditEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO session_audit (key, data) VALUES (?, ?)`, key.String(), raw,
	); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// AuditTrail returns the working audit log in append order.
func (s *SQLiteSessionStore) AuditTrail(ctx context.Context, key model.SessionKey) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM session_audit WHERE key = ? ORDER BY seq ASC`, key.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("read audit: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e model.AuditEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
