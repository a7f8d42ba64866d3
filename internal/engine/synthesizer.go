package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recall/internal/types"
)

// answerSchema constrains the generation service's output: an ordered
// list of paragraphs, each citing evidence quote ids.
const answerSchema = `{
  "type": "object",
  "properties": {
    "paragraphs": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string"},
          "citations": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["text", "citations"]
      }
    }
  },
  "required": ["paragraphs"]
}`

const synthesisContract = `You answer questions about the user's recorded meetings.

Rules:
- Use only the evidence quotes provided in the request. Do not use outside knowledge.
- Every paragraph of the answer must carry one or more citations, each an exact quoteId copied from the evidence.
- If the evidence is insufficient to answer the question, return an empty paragraphs array.`

// evidencePayload is the quote shape sent to the generation service: the
// citation-relevant fields only, no deep links or internal ids.
type evidencePayload struct {
	QuoteID      string `json:"quoteId"`
	Text         string `json:"text"`
	Speaker      string `json:"speaker,omitempty"`
	SessionTitle string `json:"sessionTitle"`
	TimeRange    string `json:"timeRange,omitempty"`
	SourceType   string `json:"sourceType"`
}

type generatedAnswer struct {
	Paragraphs []types.AnswerParagraph `json:"paragraphs"`
}

// synthesizeAnswer asks the generation service for a citation-grounded
// answer over the evidence bundle. Returns (paragraphs, true) on a valid
// answer; (nil, false) when the answer is absent for any reason: call
// failure, malformed output, or zero paragraphs surviving validation.
// The caller substitutes the deterministic fallback; the original error
// is only logged.
func (e *Engine) synthesizeAnswer(ctx context.Context, question string, bundle []types.EvidenceQuote) ([]types.AnswerParagraph, bool) {
	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	defer cancel()

	payload := make([]evidencePayload, len(bundle))
	for i, q := range bundle {
		p := evidencePayload{
			QuoteID:      q.QuoteID,
			Text:         q.Text,
			Speaker:      q.Speaker,
			SessionTitle: q.SessionTitle,
			SourceType:   string(q.Source),
		}
		if q.Source == types.SourceMeeting && q.EndTime > 0 {
			p.TimeRange = fmt.Sprintf("%.0fs-%.0fs", q.StartTime, q.EndTime)
		}
		payload[i] = p
	}

	evidenceJSON, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("failed to serialize evidence bundle", zap.Error(err))
		return nil, false
	}

	prompt := fmt.Sprintf("Question: %s\n\nEvidence:\n%s", question, evidenceJSON)

	raw, err := e.llm.CompleteWithSchema(genCtx, synthesisContract, prompt, answerSchema)
	if err != nil {
		e.logger.Warn("answer generation failed, using fallback", zap.Error(err))
		return nil, false
	}

	answer, err := parseGeneratedAnswer(raw)
	if err != nil {
		e.logger.Warn("generation output malformed, using fallback",
			zap.Error(err), zap.Int("output_len", len(raw)))
		return nil, false
	}

	valid := validateParagraphs(answer.Paragraphs, bundle)
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}

// parseGeneratedAnswer decodes the model output, tolerating a markdown
// code fence around the JSON.
func parseGeneratedAnswer(raw string) (*generatedAnswer, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var answer generatedAnswer
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return nil, fmt.Errorf("invalid answer JSON: %w", err)
	}
	return &answer, nil
}

// validateParagraphs is the single schema-validation step for generation
// output. A paragraph survives only with non-empty text, a non-empty
// citation list, and every citation referencing a quote id present in
// the bundle that was sent. Everything else is dropped.
func validateParagraphs(paragraphs []types.AnswerParagraph, bundle []types.EvidenceQuote) []types.AnswerParagraph {
	known := make(map[string]bool, len(bundle))
	for _, q := range bundle {
		known[q.QuoteID] = true
	}

	var valid []types.AnswerParagraph
	for _, para := range paragraphs {
		para.Text = strings.TrimSpace(para.Text)
		if para.Text == "" || len(para.Citations) == 0 {
			continue
		}
		ok := true
		for _, cit := range para.Citations {
			if !known[cit] {
				ok = false
				break
			}
		}
		if ok {
			valid = append(valid, para)
		}
	}
	return valid
}

// flattenAnswer renders validated paragraphs as the plain-text answer.
func flattenAnswer(paragraphs []types.AnswerParagraph) string {
	texts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n")
}
