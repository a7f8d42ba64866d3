package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recall/internal/types"
)

// titlePrefixLen is the question prefix used to auto-title a thread.
const titlePrefixLen = 50

// recordExchange persists the user turn and the assistant turn, then
// updates thread metadata. Everything here is best-effort: the answer is
// already final, so persistence failures are logged and never surfaced
// to the caller. The user message is written before the assistant
// message inside one transaction, preserving creation-time ordering for
// the history read path.
func (e *Engine) recordExchange(ctx context.Context, thread *types.ConversationThread, question string, resp *types.AskResponse) {
	if ctx.Err() != nil {
		// Aborted request: no partial write.
		return
	}

	now := time.Now().UTC()
	user := types.Message{
		ID:        uuid.NewString(),
		ThreadID:  thread.ID,
		Role:      types.RoleUser,
		Content:   question,
		CreatedAt: now,
	}
	assistant := types.Message{
		ID:        uuid.NewString(),
		ThreadID:  thread.ID,
		Role:      types.RoleAssistant,
		Content:   resp.Answer,
		Evidence:  resp.Evidence,
		CreatedAt: now,
	}

	if err := e.store.AppendExchange(ctx, thread.ID, user, assistant); err != nil {
		e.logger.Error("failed to persist exchange",
			zap.String("thread", thread.ID), zap.Error(err))
		return
	}

	title := ""
	if thread.Title == "" || thread.Title == types.DefaultThreadTitle {
		title = autoTitle(question)
	}
	if err := e.store.UpdateThreadMetadata(ctx, thread.ID, now, title); err != nil {
		// Messages are durable; metadata staleness is tolerable.
		e.logger.Warn("failed to update thread metadata",
			zap.String("thread", thread.ID), zap.Error(err))
	}
}

// autoTitle derives a thread title from the first question: a prefix of
// at most titlePrefixLen runes, with an ellipsis when truncated.
func autoTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= titlePrefixLen {
		return question
	}
	return string(runes[:titlePrefixLen]) + "…"
}
