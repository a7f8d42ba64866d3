package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recall/internal/types"
)

// GetThread returns the thread with the given id if it belongs to
// ownerID. A missing thread and a thread owned by someone else are
// indistinguishable to the caller: both return ErrThreadNotFound.
func (s *Store) GetThread(ctx context.Context, ownerID, threadID string) (*types.ConversationThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, is_default, created_at, last_message_at
		 FROM threads WHERE id = ? AND owner_id = ?`, threadID, ownerID)
	return scanThread(row)
}

// DefaultThread returns the owner's default thread, creating it on first
// use. At most one thread per owner carries the default flag.
func (s *Store) DefaultThread(ctx context.Context, ownerID string) (*types.ConversationThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, is_default, created_at, last_message_at
		 FROM threads WHERE owner_id = ? AND is_default = 1 LIMIT 1`, ownerID)
	th, err := scanThread(row)
	if err == nil {
		return th, nil
	}
	if !errors.Is(err, ErrThreadNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	created := types.ConversationThread{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Title:         types.DefaultThreadTitle,
		IsDefault:     true,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO threads (id, owner_id, title, is_default, created_at, last_message_at)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		created.ID, created.OwnerID, created.Title, created.CreatedAt, created.LastMessageAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create default thread: %w", err)
	}
	return &created, nil
}

// ListThreads returns the owner's threads, most recently active first.
func (s *Store) ListThreads(ctx context.Context, ownerID string) ([]types.ConversationThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, is_default, created_at, last_message_at
		 FROM threads WHERE owner_id = ? ORDER BY last_message_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ConversationThread
	for rows.Next() {
		var th types.ConversationThread
		var isDefault int
		if err := rows.Scan(&th.ID, &th.OwnerID, &th.Title, &isDefault, &th.CreatedAt, &th.LastMessageAt); err != nil {
			return nil, err
		}
		th.IsDefault = isDefault != 0
		out = append(out, th)
	}
	return out, rows.Err()
}

// AppendExchange persists a user turn followed by its assistant turn in a
// single transaction. The user row is inserted first so creation-time
// ordering (created_at, then insertion order) reconstructs history
// correctly on the read path.
func (s *Store) AppendExchange(ctx context.Context, threadID string, user, assistant types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range []types.Message{user, assistant} {
		evidence := "[]"
		if len(msg.Evidence) > 0 {
			blob, err := json.Marshal(msg.Evidence)
			if err != nil {
				return fmt.Errorf("failed to serialize evidence: %w", err)
			}
			evidence = string(blob)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, thread_id, role, content, evidence, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, threadID, msg.Role, msg.Content, evidence, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert %s message: %w", msg.Role, err)
		}
	}
	return tx.Commit()
}

// UpdateThreadMetadata bumps last_message_at and, when title is
// non-empty, renames the thread.
func (s *Store) UpdateThreadMetadata(ctx context.Context, threadID string, lastMessageAt time.Time, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title != "" {
		_, err := s.db.ExecContext(ctx,
			`UPDATE threads SET last_message_at = ?, title = ? WHERE id = ?`,
			lastMessageAt, title, threadID)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET last_message_at = ? WHERE id = ?`, lastMessageAt, threadID)
	return err
}

// MessagesForThread returns a thread's messages in creation order.
func (s *Store) MessagesForThread(ctx context.Context, ownerID, threadID string) ([]types.Message, error) {
	if _, err := s.GetThread(ctx, ownerID, threadID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, role, content, evidence, created_at
		 FROM messages WHERE thread_id = ? ORDER BY created_at, rowid`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		var msg types.Message
		var evidence string
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &evidence, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if evidence != "" && evidence != "[]" {
			_ = json.Unmarshal([]byte(evidence), &msg.Evidence)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanThread(row *sql.Row) (*types.ConversationThread, error) {
	var th types.ConversationThread
	var isDefault int
	err := row.Scan(&th.ID, &th.OwnerID, &th.Title, &isDefault, &th.CreatedAt, &th.LastMessageAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	th.IsDefault = isDefault != 0
	return &th, nil
}
