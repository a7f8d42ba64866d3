package store

import (
	"context"
	"encoding/json"
	"fmt"

	"recall/internal/types"
)

// Write helpers used by the ingestion pipeline and test fixtures. The
// retrieval engine itself only reads these tables.

// UpsertSession inserts or replaces a session row.
func (s *Store) UpsertSession(ctx context.Context, sess types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, owner_id, title, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.OwnerID, sess.Title, sess.CreatedAt)
	return err
}

// UpsertPerson inserts or replaces a person row. Aliases are stored as a
// JSON array.
func (s *Store) UpsertPerson(ctx context.Context, p types.Person) error {
	aliases, err := json.Marshal(p.Aliases)
	if err != nil {
		return fmt.Errorf("failed to serialize aliases: %w", err)
	}
	if p.Aliases == nil {
		aliases = []byte("[]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO people (id, owner_id, normalized_key, display_name, aliases)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.NormalizedKey, p.DisplayName, string(aliases))
	return err
}

// LinkSessionPerson records that a person appears in a session.
func (s *Store) LinkSessionPerson(ctx context.Context, sessionID, personID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO session_people (session_id, person_id) VALUES (?, ?)`,
		sessionID, personID)
	return err
}

// InsertSegment stores one transcript segment.
func (s *Store) InsertSegment(ctx context.Context, seg types.TranscriptSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	if seg.IsDeleted {
		deleted = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcript_segments
		 (id, session_id, speaker_name, text, start_time, end_time, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		seg.ID, seg.SessionID, seg.SpeakerName, seg.Text, seg.StartTime, seg.EndTime, deleted)
	return err
}

// InsertAttachmentChunk stores one extracted document chunk.
func (s *Store) InsertAttachmentChunk(ctx context.Context, ch types.AttachmentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO attachment_chunks
		 (id, session_id, attachment_id, content, page_number, sheet_name)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.SessionID, ch.AttachmentID, ch.Content, ch.PageNumber, ch.SheetName)
	return err
}

// UpsertSummary stores a session summary.
func (s *Store) UpsertSummary(ctx context.Context, sum types.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO summaries (id, session_id, overview, key_points, decisions, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.SessionID, sum.Overview, sum.KeyPoints, sum.Decisions, sum.Notes)
	return err
}

// UpsertEmbedding stores one embedded chunk with its provenance metadata.
func (s *Store) UpsertEmbedding(ctx context.Context, id, ownerID, sessionID, content string, vector []float32, meta types.VectorMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (id, owner_id, session_id, content, vector, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, ownerID, sessionID, content, EncodeVector(vector), string(metaJSON))
	return err
}
