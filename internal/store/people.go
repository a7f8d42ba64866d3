package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"recall/internal/types"
)

// PersonByKey looks up a person by exact normalized key, owner-scoped.
// Returns ErrNotFound on a miss.
func (s *Store) PersonByKey(ctx context.Context, ownerID, normalizedKey string) (*types.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, normalized_key, display_name, aliases FROM people
		 WHERE owner_id = ? AND normalized_key = ? LIMIT 1`,
		ownerID, normalizedKey)
	return scanPerson(row)
}

// PersonByDisplayName performs a case-insensitive substring match against
// display names. The search text is escaped so user input cannot inject
// LIKE metacharacters. Returns the first match or ErrNotFound.
func (s *Store) PersonByDisplayName(ctx context.Context, ownerID, name string) (*types.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, normalized_key, display_name, aliases FROM people
		 WHERE owner_id = ? AND display_name LIKE ? ESCAPE '\'
		 ORDER BY display_name LIMIT 1`,
		ownerID, "%"+escapeLike(name)+"%")
	return scanPerson(row)
}

// PeopleByOwner returns every person known for ownerID. Used by the alias
// resolution step, which matches in Go because aliases are stored as a
// JSON array.
func (s *Store) PeopleByOwner(ctx context.Context, ownerID string) ([]types.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, normalized_key, display_name, aliases FROM people
		 WHERE owner_id = ? ORDER BY display_name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Person
	for rows.Next() {
		var p types.Person
		var aliases string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.NormalizedKey, &p.DisplayName, &aliases); err != nil {
			return nil, err
		}
		if aliases != "" {
			_ = json.Unmarshal([]byte(aliases), &p.Aliases)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SessionsForPeople maps person ids to the deduplicated set of session
// ids those people appear in, restricted to sessions owned by ownerID.
func (s *Store) SessionsForPeople(ctx context.Context, ownerID string, personIDs []string) ([]string, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT DISTINCT sp.session_id
		 FROM session_people sp
		 JOIN sessions s ON s.id = sp.session_id
		 WHERE s.owner_id = ? AND sp.person_id IN (` + inPlaceholders(len(personIDs)) + `)
		 ORDER BY sp.session_id`
	args := append([]any{ownerID}, stringArgs(personIDs)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanPerson(row *sql.Row) (*types.Person, error) {
	var p types.Person
	var aliases string
	err := row.Scan(&p.ID, &p.OwnerID, &p.NormalizedKey, &p.DisplayName, &aliases)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if aliases != "" {
		_ = json.Unmarshal([]byte(aliases), &p.Aliases)
	}
	return &p, nil
}
