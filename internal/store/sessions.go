package store

import (
	"context"
	"database/sql"

	"recall/internal/types"
)

// SessionsByOwner returns all sessions owned by ownerID, newest first.
// This is the retrieval scope for semantic (non person-filtered) queries.
func (s *Store) SessionsByOwner(ctx context.Context, ownerID string) ([]types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, created_at FROM sessions
		 WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// SessionsByIDs returns the sessions with the given ids that belong to
// ownerID. Ids from other owners are silently absent from the result.
func (s *Store) SessionsByIDs(ctx context.Context, ownerID string, ids []string) ([]types.Session, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, owner_id, title, created_at FROM sessions
		 WHERE owner_id = ? AND id IN (` + inPlaceholders(len(ids)) + `)`
	args := append([]any{ownerID}, stringArgs(ids)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]types.Session, error) {
	var out []types.Session
	for rows.Next() {
		var sess types.Session
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Title, &sess.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
