package store

import (
	"context"
	"strings"

	"recall/internal/types"
)

// keywordPredicate builds "(lower(col) LIKE ? ESCAPE '\' OR ...)" over
// the given keywords and appends the matching arguments. Keywords are
// lowercased and escaped so they only match literally.
func keywordPredicate(col string, keywords []string, args *[]any) string {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		parts = append(parts, "lower("+col+`) LIKE ? ESCAPE '\'`)
		*args = append(*args, "%"+escapeLike(strings.ToLower(kw))+"%")
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// SearchSegments returns non-deleted transcript segments within the
// session scope whose text contains any keyword, case-insensitively.
// Results are ordered by session then start time and capped at limit.
func (s *Store) SearchSegments(ctx context.Context, sessionIDs, keywords []string, limit int) ([]types.TranscriptSegment, error) {
	if len(sessionIDs) == 0 || len(keywords) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := stringArgs(sessionIDs)
	query := `SELECT id, session_id, speaker_name, text, start_time, end_time
		 FROM transcript_segments
		 WHERE session_id IN (` + inPlaceholders(len(sessionIDs)) + `)
		   AND is_deleted = 0
		   AND ` + keywordPredicate("text", keywords, &args) + `
		 ORDER BY session_id, start_time LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TranscriptSegment
	for rows.Next() {
		var seg types.TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.SessionID, &seg.SpeakerName, &seg.Text, &seg.StartTime, &seg.EndTime); err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// SearchAttachmentChunks returns attachment chunks within the session
// scope whose content contains any keyword. The join on sessions enforces
// owner scoping on top of the session-id set.
func (s *Store) SearchAttachmentChunks(ctx context.Context, ownerID string, sessionIDs, keywords []string, limit int) ([]types.AttachmentChunk, error) {
	if len(sessionIDs) == 0 || len(keywords) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := []any{ownerID}
	args = append(args, stringArgs(sessionIDs)...)
	query := `SELECT c.id, c.session_id, c.attachment_id, c.content, c.page_number, c.sheet_name
		 FROM attachment_chunks c
		 JOIN sessions s ON s.id = c.session_id
		 WHERE s.owner_id = ?
		   AND c.session_id IN (` + inPlaceholders(len(sessionIDs)) + `)
		   AND ` + keywordPredicate("c.content", keywords, &args) + `
		 ORDER BY c.session_id, c.attachment_id, c.page_number LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.AttachmentChunk
	for rows.Next() {
		var ch types.AttachmentChunk
		if err := rows.Scan(&ch.ID, &ch.SessionID, &ch.AttachmentID, &ch.Content, &ch.PageNumber, &ch.SheetName); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// SummariesForSessions returns the summaries of the given sessions.
// Field-level keyword matching happens in the collector so each matching
// field can become its own evidence item.
func (s *Store) SummariesForSessions(ctx context.Context, sessionIDs []string) ([]types.Summary, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, session_id, overview, key_points, decisions, notes
		 FROM summaries WHERE session_id IN (` + inPlaceholders(len(sessionIDs)) + `)
		 ORDER BY session_id`

	rows, err := s.db.QueryContext(ctx, query, stringArgs(sessionIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Summary
	for rows.Next() {
		var sum types.Summary
		if err := rows.Scan(&sum.ID, &sum.SessionID, &sum.Overview, &sum.KeyPoints, &sum.Decisions, &sum.Notes); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
