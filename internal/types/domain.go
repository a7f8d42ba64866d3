// Package types defines the domain model shared by the store, the
// retrieval engine, and the CLI.
package types

import "time"

// =============================================================================
// ARCHIVE ENTITIES
// =============================================================================

// Session is one recorded meeting. It is the unit of scoping for all
// retrieval: every evidence quote belongs to exactly one session.
type Session struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
}

// Person is a canonical participant extracted by the upstream
// entity-extraction pipeline. Read-only to the retrieval core.
type Person struct {
	ID            string
	OwnerID       string
	NormalizedKey string // lowercased canonical name
	DisplayName   string
	Aliases       []string
}

// TranscriptSegment is a single diarized line of a session transcript.
// Soft-deleted segments are excluded from all retrieval.
type TranscriptSegment struct {
	ID          string
	SessionID   string
	SpeakerName string
	Text        string
	StartTime   float64 // seconds from session start
	EndTime     float64
	IsDeleted   bool
}

// AttachmentChunk is one extracted chunk of a document attached to a session.
type AttachmentChunk struct {
	ID           string
	SessionID    string
	AttachmentID string
	Content      string
	PageNumber   int
	SheetName    string
}

// Summary is the generated session summary. Each field is independently
// searchable and produces its own evidence quote on a match.
type Summary struct {
	ID        string
	SessionID string
	Overview  string
	KeyPoints string
	Decisions string
	Notes     string
}

// SummaryFields returns the searchable fields of a summary in a fixed
// order, as (field name, text) pairs. Empty fields are included; callers
// skip them.
func (s Summary) SummaryFields() []SummaryField {
	return []SummaryField{
		{Name: "overview", Text: s.Overview},
		{Name: "keyPoints", Text: s.KeyPoints},
		{Name: "decisions", Text: s.Decisions},
		{Name: "notes", Text: s.Notes},
	}
}

// SummaryField is one named field of a summary.
type SummaryField struct {
	Name string
	Text string
}

// =============================================================================
// VECTOR SEARCH
// =============================================================================

// VectorMetadata describes the provenance of an embedded chunk. It is
// written by the ingestion pipeline and used to classify vector hits back
// into transcript-shaped or summary-shaped evidence.
type VectorMetadata struct {
	SourceType   string  `json:"source_type"` // "transcript" or "summary"
	Speaker      string  `json:"speaker,omitempty"`
	StartTime    float64 `json:"start_time,omitempty"`
	EndTime      float64 `json:"end_time,omitempty"`
	SummaryField string  `json:"summary_field,omitempty"`
}

// VectorHit is one ranked result from the vector similarity search.
type VectorHit struct {
	ID         string
	SessionID  string
	Content    string
	Similarity float64
	Metadata   VectorMetadata
}

// =============================================================================
// EVIDENCE
// =============================================================================

// SourceType identifies where an evidence quote came from.
type SourceType string

const (
	SourceMeeting SourceType = "meeting"
	SourceDoc     SourceType = "doc"
	SourceSummary SourceType = "summary"
)

// EvidenceQuote is a single retrieved excerpt with provenance metadata
// and a deep link back to its source location. Quotes are constructed
// fresh per request and never persisted on their own; only the owning
// assistant message's evidence blob stores them.
type EvidenceQuote struct {
	QuoteID      string     `json:"quoteId"`
	Text         string     `json:"text"`
	Speaker      string     `json:"speaker,omitempty"`
	SessionID    string     `json:"sessionId"`
	SessionTitle string     `json:"sessionTitle"`
	SessionDate  time.Time  `json:"sessionDate"`
	StartTime    float64    `json:"startTime,omitempty"`
	EndTime      float64    `json:"endTime,omitempty"`
	Source       SourceType `json:"sourceType"`
	PageNumber   int        `json:"pageNumber,omitempty"`
	SheetName    string     `json:"sheetName,omitempty"`
	SummaryField string     `json:"summaryField,omitempty"`
	DeepLink     string     `json:"deepLink"`
}

// =============================================================================
// CONVERSATION
// =============================================================================

// DefaultThreadTitle is the placeholder title of a freshly created
// thread. The recorder replaces it with a prefix of the first question.
const DefaultThreadTitle = "New conversation"

// ConversationThread groups the messages of one conversation. At most one
// thread per owner is flagged default; it is created lazily on first use.
type ConversationThread struct {
	ID            string
	OwnerID       string
	Title         string
	IsDefault     bool
	CreatedAt     time.Time
	LastMessageAt time.Time
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation thread. Evidence is attached only
// to assistant messages. Within a thread, message order is creation-time
// order.
type Message struct {
	ID        string
	ThreadID  string
	Role      string
	Content   string
	Evidence  []EvidenceQuote
	CreatedAt time.Time
}

// =============================================================================
// REQUEST / RESPONSE
// =============================================================================

// QueryType classifies how a question anchors retrieval.
type QueryType string

const (
	// QueryPersonFilter restricts retrieval to the sessions a named
	// person appears in.
	QueryPersonFilter QueryType = "person_filter"
	// QuerySemantic searches across all of the caller's sessions.
	QuerySemantic QueryType = "semantic"
)

// AskRequest is one question against the caller's archive. ThreadID is
// optional; when empty the owner's default thread is used.
type AskRequest struct {
	OwnerID  string
	ThreadID string
	Question string
}

// AnswerParagraph is one paragraph of a synthesized answer together with
// the evidence quote ids backing it. Every paragraph cites at least one
// quote id present in the evidence bundle.
type AnswerParagraph struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations"`
}

// Source is an evidence quote reshaped for display in a source list.
type Source struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Kind    string `json:"kind"`
}

// AskResponse is the engine's answer to a question. Answer is never
// empty: it carries either a grounded answer or a deterministic fallback
// message. PersonNotFound and NoSessions flag the two terminal business
// outcomes of person resolution.
type AskResponse struct {
	Answer         string            `json:"answer"`
	Paragraphs     []AnswerParagraph `json:"paragraphs,omitempty"`
	Evidence       []EvidenceQuote   `json:"evidence"`
	Sources        []Source          `json:"sources"`
	QueryType      QueryType         `json:"queryType"`
	PersonNotFound bool              `json:"personNotFound,omitempty"`
	NoSessions     bool              `json:"noSessions,omitempty"`
	ThreadID       string            `json:"threadId,omitempty"`
}
