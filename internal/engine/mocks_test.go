package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"recall/internal/store"
	"recall/internal/types"
)

// fakeEmbedder is a deterministic embedding.Engine that counts calls.
type fakeEmbedder struct {
	calls int32
	vec   []float32
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if f.vec != nil {
		return f.vec, nil
	}
	return make([]float32, 8), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 8 }
func (f *fakeEmbedder) Name() string    { return "fake" }

// fakeLLM is a canned llm.Client that counts calls.
type fakeLLM struct {
	calls    int32
	response string
	err      error
}

func (f *fakeLLM) CompleteWithSchema(ctx context.Context, system, user, schema string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// vectorStub wraps a real store, substituting the vector search result.
// Everything else hits the embedded store.
type vectorStub struct {
	*store.Store
	hits []types.VectorHit
	err  error
}

func (v *vectorStub) VectorSearch(ctx context.Context, ownerID string, query []float32, threshold float64, limit int) ([]types.VectorHit, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.hits, nil
}

const testOwner = "owner-1"

// newTestStore opens an in-memory store seeded with a small archive:
//
//	s1 "Pricing sync"  - Dana Kim; segments seg1 (live), seg3 (deleted);
//	                     attachment chunk ch1; summary sum1
//	s2 "Infra review"  - Bob Tran; segment seg2 mentions pricing too
//	s3 "Design jam"    - Dana Kim; segment seg4
//
// Quinn Vo exists but is linked to no session.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	sessions := []types.Session{
		{ID: "s1", OwnerID: testOwner, Title: "Pricing sync", CreatedAt: base},
		{ID: "s2", OwnerID: testOwner, Title: "Infra review", CreatedAt: base.Add(24 * time.Hour)},
		{ID: "s3", OwnerID: testOwner, Title: "Design jam", CreatedAt: base.Add(48 * time.Hour)},
	}
	for _, sess := range sessions {
		if err := st.UpsertSession(ctx, sess); err != nil {
			t.Fatalf("seed session %s: %v", sess.ID, err)
		}
	}

	people := []types.Person{
		{ID: "p-dana", OwnerID: testOwner, NormalizedKey: "dana", DisplayName: "Dana Kim", Aliases: []string{"DK"}},
		{ID: "p-bob", OwnerID: testOwner, NormalizedKey: "bob", DisplayName: "Bob Tran"},
		{ID: "p-quinn", OwnerID: testOwner, NormalizedKey: "quinn", DisplayName: "Quinn Vo"},
	}
	for _, p := range people {
		if err := st.UpsertPerson(ctx, p); err != nil {
			t.Fatalf("seed person %s: %v", p.ID, err)
		}
	}
	links := [][2]string{{"s1", "p-dana"}, {"s2", "p-bob"}, {"s3", "p-dana"}}
	for _, l := range links {
		if err := st.LinkSessionPerson(ctx, l[0], l[1]); err != nil {
			t.Fatalf("link %v: %v", l, err)
		}
	}

	segments := []types.TranscriptSegment{
		{ID: "seg1", SessionID: "s1", SpeakerName: "Dana Kim", Text: "We agreed to raise pricing by ten percent next quarter.", StartTime: 120, EndTime: 131},
		{ID: "seg2", SessionID: "s2", SpeakerName: "Bob Tran", Text: "The pricing page needs a redesign before launch.", StartTime: 44, EndTime: 52},
		{ID: "seg3", SessionID: "s1", SpeakerName: "Dana Kim", Text: "Scratch that earlier pricing remark entirely.", StartTime: 300, EndTime: 306, IsDeleted: true},
		{ID: "seg4", SessionID: "s3", SpeakerName: "Dana Kim", Text: "Pricing tiers stay unchanged for enterprise accounts.", StartTime: 15, EndTime: 22},
	}
	for _, seg := range segments {
		if err := st.InsertSegment(ctx, seg); err != nil {
			t.Fatalf("seed segment %s: %v", seg.ID, err)
		}
	}

	if err := st.InsertAttachmentChunk(ctx, types.AttachmentChunk{
		ID: "ch1", SessionID: "s1", AttachmentID: "att1",
		Content: "Appendix C: pricing table covering the new plan lineup.", PageNumber: 3,
	}); err != nil {
		t.Fatalf("seed chunk: %v", err)
	}

	if err := st.UpsertSummary(ctx, types.Summary{
		ID: "sum1", SessionID: "s1",
		Overview:  "Team aligned on the pricing changes for next quarter.",
		Decisions: "Raise pricing ten percent; grandfather existing customers.",
	}); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	return st
}

// newTestEngine wires an Engine over the given datastore with fakes.
func newTestEngine(ds Datastore, embed *fakeEmbedder, gen *fakeLLM) *Engine {
	return New(ds, embed, gen, DefaultConfig(), zap.NewNop())
}
