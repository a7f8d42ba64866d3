package engine

import (
	"regexp"
	"strings"

	"recall/internal/types"
)

// maxKeywords caps the salient tokens kept for substring search.
const maxKeywords = 6

// Intent is the classified shape of a question. Classification is a pure
// function: identical input always yields an identical Intent.
type Intent struct {
	QueryType   types.QueryType
	PersonNames []string
	Keywords    []string
	WantsAnswer bool
}

// Patterns that anchor a question to a specific person. The first
// capture group is the candidate name; the resolver decides whether it
// actually names anyone.
var personPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhat\s+(?:did|does|do|has|have)\s+([\p{L}][\p{L} .'-]{0,60}?)\s+(?:say|said|says|mention|mentioned|think|thinks|thought|decide|decided|ask|asked|propose|proposed|discuss|discussed|talk)`),
	regexp.MustCompile(`(?i)\bdid\s+([\p{L}][\p{L} .'-]{0,60}?)\s+(?:say|mention|talk|bring\s+up|discuss|agree|decide|promise|commit)`),
	regexp.MustCompile(`(?i)\baccording\s+to\s+([\p{L}][\p{L} .'-]{0,60}?)(?:\s*[,?.!]|$)`),
	// Possessive name: "Dana's update", "Dana Kim's decision".
	regexp.MustCompile(`\b(\p{Lu}[\p{L}'-]+(?:\s+\p{Lu}[\p{L}'-]+)?)(?:'s|’s)\b`),
}

// Interrogative lexical markers. A question mark or any of these as the
// leading token marks the question as wanting a generated answer.
var interrogatives = map[string]bool{
	"what": true, "who": true, "whom": true, "when": true, "where": true,
	"why": true, "how": true, "which": true, "did": true, "do": true,
	"does": true, "is": true, "are": true, "was": true, "were": true,
	"can": true, "could": true, "should": true, "would": true, "will": true,
	"has": true, "have": true, "tell": true, "summarize": true, "explain": true,
	"list": true,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "of": true, "for": true,
	"with": true, "about": true, "into": true, "from": true, "by": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"do": true, "does": true, "did": true, "doing": true, "have": true,
	"has": true, "had": true, "what": true, "who": true, "whom": true,
	"when": true, "where": true, "why": true, "how": true, "which": true,
	"say": true, "said": true, "says": true, "mention": true, "mentioned": true,
	"think": true, "thinks": true, "thought": true, "tell": true, "me": true,
	"my": true, "our": true, "your": true, "their": true, "his": true,
	"her": true, "its": true, "we": true, "they": true, "i": true, "you": true,
	"it": true, "this": true, "that": true, "these": true, "those": true,
	"can": true, "could": true, "should": true, "would": true, "will": true,
	"there": true, "here": true, "any": true, "anything": true, "something": true,
	"meeting": true, "meetings": true, "talk": true, "talked": true,
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'-]*`)

// ClassifyQuestion turns a raw question into an Intent. The caller has
// already validated length bounds.
func ClassifyQuestion(question string) Intent {
	q := strings.TrimSpace(question)

	names := extractPersonNames(q)
	intent := Intent{
		QueryType:   types.QuerySemantic,
		PersonNames: names,
		Keywords:    extractKeywords(q, names),
		WantsAnswer: wantsGeneratedAnswer(q),
	}
	if len(names) > 0 {
		intent.QueryType = types.QueryPersonFilter
	}
	return intent
}

// extractPersonNames runs the person-anchor patterns in order and
// collects unique candidate names.
func extractPersonNames(q string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, pat := range personPatterns {
		for _, m := range pat.FindAllStringSubmatch(q, -1) {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			// Interrogatives captured by the looser patterns are not names.
			if interrogatives[key] || stopWords[key] || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, name)
		}
	}
	return names
}

// extractKeywords returns up to maxKeywords salient tokens in order of
// first appearance, excluding stop words and the tokens of extracted
// person names (those anchor the session scope instead).
func extractKeywords(q string, personNames []string) []string {
	nameTokens := make(map[string]bool)
	for _, name := range personNames {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(name), -1) {
			nameTokens[tok] = true
		}
	}

	var keywords []string
	seen := make(map[string]bool)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(q), -1) {
		if len(tok) < 2 || stopWords[tok] || nameTokens[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// wantsGeneratedAnswer reports whether the question has interrogative
// structure. Bare lookup queries (a name, a couple of terms) return
// false so the costly synthesis step is skipped and evidence is returned
// directly.
func wantsGeneratedAnswer(q string) bool {
	if strings.Contains(q, "?") {
		return true
	}
	tokens := tokenPattern.FindAllString(strings.ToLower(q), -1)
	for _, tok := range tokens {
		if interrogatives[tok] {
			return true
		}
	}
	return false
}
