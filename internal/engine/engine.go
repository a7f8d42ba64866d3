// Package engine implements the evidence-grounded retrieval and answer
// synthesis core: question classification, person resolution, four
// parallel evidence collectors, merge/dedup/budgeting, citation-
// constrained answer synthesis, and best-effort conversation recording.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"recall/internal/embedding"
	"recall/internal/llm"
	"recall/internal/types"
)

// Datastore is the slice of the SQLite store the engine depends on.
// *store.Store implements it; tests substitute pieces of it.
type Datastore interface {
	SessionsByOwner(ctx context.Context, ownerID string) ([]types.Session, error)
	SessionsByIDs(ctx context.Context, ownerID string, ids []string) ([]types.Session, error)

	PersonByKey(ctx context.Context, ownerID, normalizedKey string) (*types.Person, error)
	PersonByDisplayName(ctx context.Context, ownerID, name string) (*types.Person, error)
	PeopleByOwner(ctx context.Context, ownerID string) ([]types.Person, error)
	SessionsForPeople(ctx context.Context, ownerID string, personIDs []string) ([]string, error)

	SearchSegments(ctx context.Context, sessionIDs, keywords []string, limit int) ([]types.TranscriptSegment, error)
	SearchAttachmentChunks(ctx context.Context, ownerID string, sessionIDs, keywords []string, limit int) ([]types.AttachmentChunk, error)
	SummariesForSessions(ctx context.Context, sessionIDs []string) ([]types.Summary, error)
	VectorSearch(ctx context.Context, ownerID string, query []float32, threshold float64, limit int) ([]types.VectorHit, error)

	GetThread(ctx context.Context, ownerID, threadID string) (*types.ConversationThread, error)
	DefaultThread(ctx context.Context, ownerID string) (*types.ConversationThread, error)
	AppendExchange(ctx context.Context, threadID string, user, assistant types.Message) error
	UpdateThreadMetadata(ctx context.Context, threadID string, lastMessageAt time.Time, title string) error
}

// Config tunes retrieval and the sub-call timeouts.
type Config struct {
	// MaxExactMentions is the overall evidence budget per response.
	MaxExactMentions int

	// SessionCap limits evidence items per session for person-filter
	// queries, applied post-merge across all channels.
	SessionCap int

	// VectorThreshold is the minimum cosine similarity for vector hits.
	// Tuned for recall: slightly lower than a plain semantic search
	// would use, since the merger deduplicates against keyword hits.
	VectorThreshold float64

	// VectorLimit caps raw vector hits before post-filtering.
	VectorLimit int

	// MaxQuestionLen is the question length bound in runes.
	MaxQuestionLen int

	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxExactMentions: 40,
		SessionCap:       3,
		VectorThreshold:  0.30,
		VectorLimit:      40,
		MaxQuestionLen:   5000,
		EmbedTimeout:     15 * time.Second,
		SearchTimeout:    20 * time.Second,
		GenerateTimeout:  60 * time.Second,
	}
}

// Engine answers questions against one owner's meeting archive. All
// collaborators are injected at construction; the engine itself holds no
// mutable state, so one instance serves concurrent requests.
type Engine struct {
	store  Datastore
	embed  embedding.Engine
	llm    llm.Client
	cfg    Config
	logger *zap.Logger
}

// New constructs an Engine.
func New(store Datastore, embed embedding.Engine, gen llm.Client, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxExactMentions <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		embed:  embed,
		llm:    gen,
		cfg:    cfg,
		logger: logger,
	}
}

// Ask answers one question. The returned response always carries a
// non-empty Answer: a grounded answer, a deterministic fallback, or one
// of the terminal person-not-found / no-sessions messages. Errors are
// reserved for validation, authorization, a bad thread id, and
// infrastructure faults with no safe fallback.
func (e *Engine) Ask(ctx context.Context, req types.AskRequest) (*types.AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, &ValidationError{Reason: "question is empty"}
	}
	if len([]rune(question)) > e.cfg.MaxQuestionLen {
		return nil, &ValidationError{Reason: fmt.Sprintf("question exceeds %d characters", e.cfg.MaxQuestionLen)}
	}
	if req.OwnerID == "" {
		return nil, &AuthorizationError{Reason: "no caller identity"}
	}

	// Thread ownership is checked before any retrieval work: a bad
	// thread id is a cheap early exit.
	var thread *types.ConversationThread
	if req.ThreadID != "" {
		th, err := e.store.GetThread(ctx, req.OwnerID, req.ThreadID)
		if err != nil {
			return nil, err
		}
		thread = th
	}

	intent := ClassifyQuestion(question)
	e.logger.Debug("question classified",
		zap.String("query_type", string(intent.QueryType)),
		zap.Strings("person_names", intent.PersonNames),
		zap.Strings("keywords", intent.Keywords),
		zap.Bool("wants_answer", intent.WantsAnswer))

	resp := &types.AskResponse{QueryType: intent.QueryType}

	// Determine the session scope.
	var scope []string
	if intent.QueryType == types.QueryPersonFilter {
		res, err := e.resolvePersons(ctx, req.OwnerID, intent.PersonNames)
		if err != nil {
			return nil, err
		}
		if res.NotFound {
			resp.PersonNotFound = true
			resp.Answer = msgPersonNotFound(intent.PersonNames)
			e.finish(ctx, req.OwnerID, thread, question, resp)
			return resp, nil
		}
		if res.NoSessions {
			resp.NoSessions = true
			resp.Answer = msgNoSessions(res.DisplayNames)
			e.finish(ctx, req.OwnerID, thread, question, resp)
			return resp, nil
		}
		scope = res.SessionIDs
	} else {
		sessions, err := e.store.SessionsByOwner(ctx, req.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("session scope lookup failed: %w", err)
		}
		scope = make([]string, len(sessions))
		for i, s := range sessions {
			scope[i] = s.ID
		}
	}

	if len(scope) == 0 {
		resp.Answer = msgNothingFound
		e.finish(ctx, req.OwnerID, thread, question, resp)
		return resp, nil
	}

	sessions, err := e.store.SessionsByIDs(ctx, req.OwnerID, scope)
	if err != nil {
		return nil, fmt.Errorf("session metadata lookup failed: %w", err)
	}
	sessionsByID := make(map[string]types.Session, len(sessions))
	for _, s := range sessions {
		sessionsByID[s.ID] = s
	}

	groups := e.collectEvidence(ctx, req.OwnerID, question, intent, scope, sessionsByID)
	bundle := mergeEvidence(groups, intent.QueryType == types.QueryPersonFilter, e.cfg.SessionCap, e.cfg.MaxExactMentions)
	resp.Evidence = bundle
	resp.Sources = buildSources(bundle)

	switch {
	case len(bundle) == 0:
		resp.Answer = msgNothingFound
	case !intent.WantsAnswer:
		resp.Answer = msgEvidenceOnly
	default:
		paragraphs, ok := e.synthesizeAnswer(ctx, question, bundle)
		if ok {
			resp.Paragraphs = paragraphs
			resp.Answer = flattenAnswer(paragraphs)
		} else {
			resp.Answer = msgEvidenceNoAnswer
		}
	}

	e.finish(ctx, req.OwnerID, thread, question, resp)
	return resp, nil
}

// finish resolves the thread lazily when none was supplied and records
// the exchange. Best-effort: by this point the answer is final and
// persistence problems must not turn it into an error.
func (e *Engine) finish(ctx context.Context, ownerID string, thread *types.ConversationThread, question string, resp *types.AskResponse) {
	if thread == nil {
		th, err := e.store.DefaultThread(ctx, ownerID)
		if err != nil {
			e.logger.Error("failed to resolve default thread",
				zap.String("owner", ownerID), zap.Error(err))
			return
		}
		thread = th
	}
	resp.ThreadID = thread.ID
	e.recordExchange(ctx, thread, question, resp)
}

// buildSources reshapes the evidence bundle for display.
func buildSources(bundle []types.EvidenceQuote) []types.Source {
	sources := make([]types.Source, len(bundle))
	for i, q := range bundle {
		snippet := q.Text
		if runes := []rune(snippet); len(runes) > 160 {
			snippet = string(runes[:160]) + "…"
		}
		sources[i] = types.Source{
			Title:   q.SessionTitle,
			Snippet: snippet,
			Link:    q.DeepLink,
			Kind:    string(q.Source),
		}
	}
	return sources
}
