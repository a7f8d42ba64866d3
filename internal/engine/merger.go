package engine

import (
	"strings"

	"recall/internal/types"
)

// fingerprintLen is the quote-text prefix used for deduplication. Coarse
// by intent: near-duplicates across channels (a summary line repeated by
// a vector hit) collapse onto the highest-priority occurrence.
const fingerprintLen = 50

// mergeEvidence combines collector outputs, given in priority order,
// into the final evidence bundle:
//
//  1. dedup by (session id, 50-char lowercased text prefix), first
//     occurrence in priority order wins;
//  2. for person-filter queries, cap items per session uniformly across
//     the whole merged list so one verbose session cannot crowd out the
//     others;
//  3. truncate to the overall evidence budget.
func mergeEvidence(groups [][]types.EvidenceQuote, personFilter bool, sessionCap, budget int) []types.EvidenceQuote {
	seen := make(map[string]bool)
	perSession := make(map[string]int)

	var merged []types.EvidenceQuote
	for _, group := range groups {
		for _, quote := range group {
			fp := fingerprint(quote)
			if seen[fp] {
				continue
			}
			seen[fp] = true

			if personFilter && sessionCap > 0 && perSession[quote.SessionID] >= sessionCap {
				continue
			}
			perSession[quote.SessionID]++

			merged = append(merged, quote)
			if len(merged) == budget {
				return merged
			}
		}
	}
	return merged
}

// fingerprint builds the dedup key for a quote.
func fingerprint(q types.EvidenceQuote) string {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	runes := []rune(text)
	if len(runes) > fingerprintLen {
		text = string(runes[:fingerprintLen])
	}
	return q.SessionID + "\x00" + text
}
