package engine

import (
	"fmt"
	"strings"
)

// Deterministic user-facing fallback strings. The response's answer field
// is never empty: when synthesis is skipped, fails, or finds nothing,
// one of these is substituted. Tests rely on them being byte-stable.
const (
	// msgNothingFound: no evidence in any retrieval channel.
	msgNothingFound = "I couldn't find anything in your meetings related to that."

	// msgEvidenceNoAnswer: evidence exists but synthesis produced no
	// usable answer.
	msgEvidenceNoAnswer = "I found relevant excerpts in your meetings but couldn't compose a summary answer. The sources below link to them."

	// msgEvidenceOnly: lookup-style query, synthesis intentionally
	// skipped.
	msgEvidenceOnly = "Here is what your meetings contain about that."
)

// msgPersonNotFound is the terminal response when no candidate name
// resolves to a known person.
func msgPersonNotFound(names []string) string {
	if len(names) == 0 {
		return "I couldn't find that person in your meetings."
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("I couldn't find %s in your meetings.", strings.Join(quoted, ", "))
}

// msgNoSessions is the terminal response when a person resolves but is
// not linked to any session yet, e.g. an un-diarized speaker.
func msgNoSessions(names []string) string {
	if len(names) == 0 {
		return "That person hasn't appeared in any of your recorded meetings yet."
	}
	return fmt.Sprintf("%s hasn't appeared in any of your recorded meetings yet.", strings.Join(names, ", "))
}
