package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"recall/internal/store"
	"recall/internal/types"
)

func TestMain(m *testing.M) {
	// The opencensus stats worker is started by a dependency's init()
	// before any test runs, so it can never be stopped by the tests.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func TestAskValidation(t *testing.T) {
	eng := newTestEngine(newTestStore(t), &fakeEmbedder{}, &fakeLLM{})
	ctx := context.Background()

	_, err := eng.Ask(ctx, types.AskRequest{OwnerID: testOwner, Question: "   "})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("empty question: got %v, want ValidationError", err)
	}

	long := strings.Repeat("a", 5001)
	_, err = eng.Ask(ctx, types.AskRequest{OwnerID: testOwner, Question: long})
	if !errors.As(err, &verr) {
		t.Fatalf("oversized question: got %v, want ValidationError", err)
	}

	_, err = eng.Ask(ctx, types.AskRequest{Question: "What happened?"})
	var aerr *AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("missing owner: got %v, want AuthorizationError", err)
	}
}

func TestAskUnknownThread(t *testing.T) {
	eng := newTestEngine(newTestStore(t), &fakeEmbedder{}, &fakeLLM{})

	_, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		ThreadID: "no-such-thread",
		Question: "What happened?",
	})
	if !errors.Is(err, store.ErrThreadNotFound) {
		t.Fatalf("got %v, want ErrThreadNotFound", err)
	}
}

func TestAskPersonFilter(t *testing.T) {
	st := newTestStore(t)
	embed := &fakeEmbedder{}
	gen := &fakeLLM{response: `{"paragraphs":[{"text":"Dana said pricing will rise ten percent next quarter.","citations":["seg_seg1"]}]}`}
	eng := newTestEngine(st, embed, gen)

	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		Question: "What did Dana say about pricing?",
	})
	require.NoError(t, err)

	assert.Equal(t, types.QueryPersonFilter, resp.QueryType)
	assert.False(t, resp.PersonNotFound)
	assert.Equal(t, "Dana said pricing will rise ten percent next quarter.", resp.Answer)
	require.Len(t, resp.Paragraphs, 1)
	assert.Equal(t, []string{"seg_seg1"}, resp.Paragraphs[0].Citations)

	// Evidence is restricted to Dana's sessions; Bob's matching segment in
	// s2 must not leak in.
	require.NotEmpty(t, resp.Evidence)
	ids := make(map[string]bool)
	for _, q := range resp.Evidence {
		assert.NotEqual(t, "s2", q.SessionID, "evidence leaked from out-of-scope session")
		ids[q.QuoteID] = true
	}
	assert.True(t, ids["seg_seg1"])
	assert.True(t, ids["seg_seg4"])
	assert.False(t, ids["seg_seg3"], "deleted segment surfaced")

	// Session s1 already contributes three quotes (two summary fields plus
	// seg1), so its attachment chunk falls to the per-session cap.
	assert.False(t, ids["doc_ch1"])

	assert.Len(t, resp.Sources, len(resp.Evidence))

	// The exchange landed on the lazily created default thread.
	require.NotEmpty(t, resp.ThreadID)
	msgs, err := st.MessagesForThread(context.Background(), testOwner, resp.ThreadID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "What did Dana say about pricing?", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.NotEmpty(t, msgs[1].Evidence)

	th, err := st.GetThread(context.Background(), testOwner, resp.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, "What did Dana say about pricing?", th.Title)
}

func TestAskPersonNotFound(t *testing.T) {
	embed := &fakeEmbedder{}
	gen := &fakeLLM{}
	eng := newTestEngine(newTestStore(t), embed, gen)

	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		Question: "What did Zzyx say about the budget?",
	})
	require.NoError(t, err)

	assert.True(t, resp.PersonNotFound)
	assert.Contains(t, resp.Answer, `"Zzyx"`)
	assert.Empty(t, resp.Evidence)

	// Terminal outcome: neither embedding nor generation is spent.
	assert.Zero(t, embed.calls)
	assert.Zero(t, gen.calls)

	// Still recorded as a conversation turn.
	assert.NotEmpty(t, resp.ThreadID)
}

func TestAskPersonWithoutSessions(t *testing.T) {
	embed := &fakeEmbedder{}
	gen := &fakeLLM{}
	eng := newTestEngine(newTestStore(t), embed, gen)

	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		Question: "What did Quinn say about pricing?",
	})
	require.NoError(t, err)

	assert.True(t, resp.NoSessions)
	assert.False(t, resp.PersonNotFound)
	assert.Contains(t, resp.Answer, "Quinn Vo hasn't appeared")
	assert.Zero(t, embed.calls)
	assert.Zero(t, gen.calls)
}

func TestAskSemanticVectorUnavailable(t *testing.T) {
	st := newTestStore(t)
	stub := &vectorStub{Store: st, err: store.ErrVectorUnavailable}
	gen := &fakeLLM{response: `{"paragraphs":[{"text":"Pricing goes up ten percent.","citations":["seg_seg1"]}]}`}
	eng := newTestEngine(stub, &fakeEmbedder{}, gen)

	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		Question: "What were the pricing decisions?",
	})
	require.NoError(t, err)

	// Keyword channels carry the request on their own.
	assert.Equal(t, types.QuerySemantic, resp.QueryType)
	assert.NotEmpty(t, resp.Evidence)
	assert.Equal(t, "Pricing goes up ten percent.", resp.Answer)
}

func TestAskSemanticWithVectorHits(t *testing.T) {
	st := newTestStore(t)
	stub := &vectorStub{Store: st, hits: []types.VectorHit{
		{
			ID: "emb1", SessionID: "s1", Similarity: 0.82,
			Content:  "Margins hold up even after the adjustment lands.",
			Metadata: types.VectorMetadata{SourceType: "transcript", Speaker: "Dana Kim", StartTime: 410, EndTime: 418},
		},
		{
			ID: "emb2", SessionID: "s3", Similarity: 0.71,
			Content:  "Enterprise contracts renew at current rates.",
			Metadata: types.VectorMetadata{SourceType: "summary", SummaryField: "decisions"},
		},
		{
			ID: "emb3", SessionID: "s-foreign", Similarity: 0.9,
			Content: "Should never surface.",
		},
	}}
	gen := &fakeLLM{response: `{"paragraphs":[{"text":"Margins hold after the change.","citations":["vec_seg_emb1"]}]}`}
	eng := newTestEngine(stub, &fakeEmbedder{}, gen)

	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		Question: "How do the pricing changes affect margins?",
	})
	require.NoError(t, err)

	byID := make(map[string]types.EvidenceQuote)
	for _, q := range resp.Evidence {
		byID[q.QuoteID] = q
	}

	seg, ok := byID["vec_seg_emb1"]
	require.True(t, ok, "transcript-shaped vector hit missing")
	assert.Equal(t, types.SourceMeeting, seg.Source)
	assert.Equal(t, "Dana Kim", seg.Speaker)
	assert.Equal(t, "/sessions/s1?t=410&segment=emb1", seg.DeepLink)

	sum, ok := byID["vec_sum_emb2"]
	require.True(t, ok, "summary-shaped vector hit missing")
	assert.Equal(t, types.SourceSummary, sum.Source)
	assert.Equal(t, "decisions", sum.SummaryField)
	assert.Equal(t, "/sessions/s3#summary", sum.DeepLink)

	_, leaked := byID["vec_seg_emb3"]
	assert.False(t, leaked, "hit outside the session scope surfaced")
}

func TestAskMalformedGenerationFallsBack(t *testing.T) {
	gen := &fakeLLM{response: "this is not json at all"}
	eng := newTestEngine(newTestStore(t), &fakeEmbedder{}, gen)

	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		Question: "What did Dana say about pricing?",
	})
	require.NoError(t, err)

	assert.Equal(t, msgEvidenceNoAnswer, resp.Answer)
	assert.Empty(t, resp.Paragraphs)
	assert.NotEmpty(t, resp.Evidence, "fallback must still carry the evidence")
	assert.Len(t, resp.Sources, len(resp.Evidence))
}

func TestAskLookupSkipsSynthesis(t *testing.T) {
	gen := &fakeLLM{response: `{"paragraphs":[]}`}
	eng := newTestEngine(newTestStore(t), &fakeEmbedder{}, gen)

	// Possessive anchor, no interrogative structure: evidence only.
	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  testOwner,
		Question: "Dana's pricing update",
	})
	require.NoError(t, err)

	assert.Equal(t, types.QueryPersonFilter, resp.QueryType)
	assert.Equal(t, msgEvidenceOnly, resp.Answer)
	assert.NotEmpty(t, resp.Evidence)
	assert.Zero(t, gen.calls, "lookup query must not call the generation service")
}

func TestAskEmptyArchive(t *testing.T) {
	embed := &fakeEmbedder{}
	gen := &fakeLLM{}
	eng := newTestEngine(newTestStore(t), embed, gen)

	resp, err := eng.Ask(context.Background(), types.AskRequest{
		OwnerID:  "owner-empty",
		Question: "What happened last week?",
	})
	require.NoError(t, err)

	assert.Equal(t, msgNothingFound, resp.Answer)
	assert.Empty(t, resp.Evidence)
	assert.Zero(t, embed.calls)
	assert.Zero(t, gen.calls)
}

func TestAskExplicitThreadReused(t *testing.T) {
	st := newTestStore(t)
	gen := &fakeLLM{response: `{"paragraphs":[{"text":"Pricing rises.","citations":["seg_seg1"]}]}`}
	eng := newTestEngine(st, &fakeEmbedder{}, gen)
	ctx := context.Background()

	th, err := st.DefaultThread(ctx, testOwner)
	require.NoError(t, err)

	resp, err := eng.Ask(ctx, types.AskRequest{
		OwnerID:  testOwner,
		ThreadID: th.ID,
		Question: "What did Dana say about pricing?",
	})
	require.NoError(t, err)
	assert.Equal(t, th.ID, resp.ThreadID)

	resp2, err := eng.Ask(ctx, types.AskRequest{
		OwnerID:  testOwner,
		Question: "What did Dana say about pricing?",
	})
	require.NoError(t, err)
	assert.Equal(t, th.ID, resp2.ThreadID, "default thread must be reused, not recreated")

	msgs, err := st.MessagesForThread(ctx, testOwner, th.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestBuildSourcesTruncatesSnippet(t *testing.T) {
	long := strings.Repeat("x", 200)
	sources := buildSources([]types.EvidenceQuote{
		{QuoteID: "seg_a", Text: long, SessionTitle: "T", DeepLink: "/sessions/s1", Source: types.SourceMeeting},
	})
	require.Len(t, sources, 1)
	if got := []rune(sources[0].Snippet); len(got) != 161 {
		t.Fatalf("snippet rune length = %d, want 160 + ellipsis", len(got))
	}
	assert.True(t, strings.HasSuffix(sources[0].Snippet, "…"))
	assert.Equal(t, "meeting", sources[0].Kind)
}
