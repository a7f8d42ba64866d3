package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recall/internal/store"
	"recall/internal/types"
)

// Collector priority order. The merger prefers structured knowledge over
// raw excerpts when duplicates exist, so summaries come first and vector
// hits last.
const (
	slotSummary = iota
	slotTranscript
	slotAttachment
	slotVector
	slotCount
)

var slotNames = [slotCount]string{"summary", "transcript", "attachment", "vector"}

// collectEvidence runs the four collectors concurrently over the session
// scope and returns their outputs in fixed priority order. A collector's
// failure is isolated: it is logged and its slot stays empty, it never
// cancels the others or fails the request.
func (e *Engine) collectEvidence(ctx context.Context, ownerID, question string, intent Intent, scope []string, sessions map[string]types.Session) [][]types.EvidenceQuote {
	var (
		results [slotCount][]types.EvidenceQuote
		errs    [slotCount]error
	)

	collectors := [slotCount]func(context.Context) ([]types.EvidenceQuote, error){
		slotSummary: func(ctx context.Context) ([]types.EvidenceQuote, error) {
			return e.collectSummaries(ctx, intent.Keywords, scope, sessions)
		},
		slotTranscript: func(ctx context.Context) ([]types.EvidenceQuote, error) {
			return e.collectTranscripts(ctx, intent.Keywords, scope, sessions)
		},
		slotAttachment: func(ctx context.Context) ([]types.EvidenceQuote, error) {
			return e.collectAttachments(ctx, ownerID, intent.Keywords, scope, sessions)
		},
		slotVector: func(ctx context.Context) ([]types.EvidenceQuote, error) {
			return e.collectVector(ctx, ownerID, question, scope, sessions)
		},
	}

	searchCtx, cancel := context.WithTimeout(ctx, e.cfg.SearchTimeout)
	defer cancel()

	g := new(errgroup.Group)
	for slot, run := range collectors {
		g.Go(func() error {
			quotes, err := run(searchCtx)
			results[slot] = quotes
			errs[slot] = err
			return nil // isolate-and-continue: errors never propagate
		})
	}
	_ = g.Wait()

	for slot, err := range errs {
		if err != nil {
			e.logger.Warn("evidence collector failed",
				zap.String("collector", slotNames[slot]), zap.Error(err))
		}
	}
	return results[:]
}

// matchesAny reports whether text contains any keyword,
// case-insensitively.
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// collectSummaries checks each summary field independently against the
// keywords; every matching field becomes its own evidence item.
func (e *Engine) collectSummaries(ctx context.Context, keywords, scope []string, sessions map[string]types.Session) ([]types.EvidenceQuote, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	summaries, err := e.store.SummariesForSessions(ctx, scope)
	if err != nil {
		return nil, err
	}

	var quotes []types.EvidenceQuote
	for _, sum := range summaries {
		sess := sessions[sum.SessionID]
		for _, field := range sum.SummaryFields() {
			if field.Text == "" || !matchesAny(field.Text, keywords) {
				continue
			}
			quotes = append(quotes, types.EvidenceQuote{
				QuoteID:      fmt.Sprintf("sum_%s_%s", sum.ID, field.Name),
				Text:         field.Text,
				SessionID:    sum.SessionID,
				SessionTitle: sess.Title,
				SessionDate:  sess.CreatedAt,
				Source:       types.SourceSummary,
				SummaryField: field.Name,
				DeepLink:     summaryDeepLink(sum.SessionID),
			})
		}
	}
	return quotes, nil
}

// collectTranscripts searches non-deleted segments in scope.
func (e *Engine) collectTranscripts(ctx context.Context, keywords, scope []string, sessions map[string]types.Session) ([]types.EvidenceQuote, error) {
	segs, err := e.store.SearchSegments(ctx, scope, keywords, 2*e.cfg.MaxExactMentions)
	if err != nil {
		return nil, err
	}

	quotes := make([]types.EvidenceQuote, 0, len(segs))
	for _, seg := range segs {
		sess := sessions[seg.SessionID]
		quotes = append(quotes, types.EvidenceQuote{
			QuoteID:      "seg_" + seg.ID,
			Text:         seg.Text,
			Speaker:      seg.SpeakerName,
			SessionID:    seg.SessionID,
			SessionTitle: sess.Title,
			SessionDate:  sess.CreatedAt,
			StartTime:    seg.StartTime,
			EndTime:      seg.EndTime,
			Source:       types.SourceMeeting,
			DeepLink:     segmentDeepLink(seg.SessionID, seg.StartTime, seg.ID),
		})
	}
	return quotes, nil
}

// collectAttachments searches document chunks in scope, additionally
// owner-scoped at the query level.
func (e *Engine) collectAttachments(ctx context.Context, ownerID string, keywords, scope []string, sessions map[string]types.Session) ([]types.EvidenceQuote, error) {
	chunks, err := e.store.SearchAttachmentChunks(ctx, ownerID, scope, keywords, 2*e.cfg.MaxExactMentions)
	if err != nil {
		return nil, err
	}

	quotes := make([]types.EvidenceQuote, 0, len(chunks))
	for _, ch := range chunks {
		sess := sessions[ch.SessionID]
		quotes = append(quotes, types.EvidenceQuote{
			QuoteID:      "doc_" + ch.ID,
			Text:         ch.Content,
			SessionID:    ch.SessionID,
			SessionTitle: sess.Title,
			SessionDate:  sess.CreatedAt,
			Source:       types.SourceDoc,
			PageNumber:   ch.PageNumber,
			SheetName:    ch.SheetName,
			DeepLink:     attachmentDeepLink(ch.SessionID, ch.AttachmentID, ch.ID),
		})
	}
	return quotes, nil
}

// collectVector embeds the question once, queries nearest neighbors
// above the recall-tuned threshold across the whole owner corpus, then
// post-filters to the allowed session set. The search capability may not
// support session-set filtering natively, so the post-filter is the
// boundary that matters. An unavailable vector capability degrades to an
// empty result, never a failure.
func (e *Engine) collectVector(ctx context.Context, ownerID, question string, scope []string, sessions map[string]types.Session) ([]types.EvidenceQuote, error) {
	embedCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()

	var vec []float32
	err := withRetry(embedCtx, 2, func(ctx context.Context) error {
		v, err := e.embed.Embed(ctx, question)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("question embedding failed: %w", err)
	}

	var hits []types.VectorHit
	err = withRetry(ctx, 2, func(ctx context.Context) error {
		h, err := e.store.VectorSearch(ctx, ownerID, vec, e.cfg.VectorThreshold, e.cfg.VectorLimit)
		if err != nil {
			return err
		}
		hits = h
		return nil
	})
	if errors.Is(err, store.ErrVectorUnavailable) {
		e.logger.Warn("vector search unavailable, continuing on keyword channels",
			zap.String("owner", ownerID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	allowed := make(map[string]bool, len(scope))
	for _, id := range scope {
		allowed[id] = true
	}

	var quotes []types.EvidenceQuote
	for _, hit := range hits {
		if !allowed[hit.SessionID] {
			continue
		}
		sess := sessions[hit.SessionID]
		quote := types.EvidenceQuote{
			Text:         hit.Content,
			SessionID:    hit.SessionID,
			SessionTitle: sess.Title,
			SessionDate:  sess.CreatedAt,
		}
		if hit.Metadata.SourceType == "summary" {
			quote.QuoteID = "vec_sum_" + hit.ID
			quote.Source = types.SourceSummary
			quote.SummaryField = hit.Metadata.SummaryField
			quote.DeepLink = summaryDeepLink(hit.SessionID)
		} else {
			quote.QuoteID = "vec_seg_" + hit.ID
			quote.Source = types.SourceMeeting
			quote.Speaker = hit.Metadata.Speaker
			quote.StartTime = hit.Metadata.StartTime
			quote.EndTime = hit.Metadata.EndTime
			quote.DeepLink = segmentDeepLink(hit.SessionID, hit.Metadata.StartTime, hit.ID)
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// Deep links encode enough location to jump straight to the evidence in
// the UI.

func segmentDeepLink(sessionID string, startTime float64, segmentID string) string {
	return fmt.Sprintf("/sessions/%s?t=%d&segment=%s", sessionID, int(math.Round(startTime)), segmentID)
}

func attachmentDeepLink(sessionID, attachmentID, chunkID string) string {
	return fmt.Sprintf("/sessions/%s/attachments/%s?chunk=%s", sessionID, attachmentID, chunkID)
}

func summaryDeepLink(sessionID string) string {
	return fmt.Sprintf("/sessions/%s#summary", sessionID)
}

// withRetry runs fn up to retries+1 times with exponential backoff.
// Context cancellation and the vector-unavailable condition stop the
// attempts immediately; both are conditions a retry cannot fix.
func withRetry(ctx context.Context, retries int, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, store.ErrVectorUnavailable) {
			return err
		}
	}
	return err
}
