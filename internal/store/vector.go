package store

import (
	"context"
	"encoding/json"
	"strings"

	"recall/internal/types"
)

// VectorSearch ranks the owner's embedded chunks by cosine similarity to
// the query vector and returns hits at or above threshold, best first.
//
// The distance function comes from the sqlite-vec extension (cgo builds)
// or the registered pure-Go equivalent. When neither is installed SQLite
// reports "no such function"; that condition is mapped to
// ErrVectorUnavailable so callers can degrade to keyword retrieval
// instead of failing the request.
func (s *Store) VectorSearch(ctx context.Context, ownerID string, query []float32, threshold float64, limit int) ([]types.VectorHit, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, content, metadata, `+distanceFn+`(vector, ?) AS dist
		 FROM embeddings
		 WHERE owner_id = ?
		 ORDER BY dist ASC
		 LIMIT ?`,
		EncodeVector(query), ownerID, limit)
	if err != nil {
		if isMissingFunction(err) {
			return nil, ErrVectorUnavailable
		}
		return nil, err
	}
	defer rows.Close()

	var out []types.VectorHit
	for rows.Next() {
		var hit types.VectorHit
		var meta string
		var dist float64
		if err := rows.Scan(&hit.ID, &hit.SessionID, &hit.Content, &meta, &dist); err != nil {
			return nil, err
		}
		hit.Similarity = 1 - dist
		if hit.Similarity < threshold {
			continue
		}
		if meta != "" {
			_ = json.Unmarshal([]byte(meta), &hit.Metadata)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		if isMissingFunction(err) {
			return nil, ErrVectorUnavailable
		}
		return nil, err
	}
	return out, nil
}

// isMissingFunction reports whether err is SQLite's complaint about an
// unregistered SQL function. Both drivers phrase it as "no such function".
func isMissingFunction(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such function")
}
