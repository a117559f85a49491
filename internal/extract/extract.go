// Package extract folds a conversation turn's reply activities into answer
// text, citations, and search terms.
package extract

import (
	"strings"

	"github.com/sells-group/copilot-qa/internal/model"
)

// Result is the extracted content of one conversation turn.
type Result struct {
	Answer      string
	Citations   []model.Citation
	SearchTerms []model.SearchTerm
}

// Extract scans the ordered reply activities of a turn. Message text
// fragments are space-joined into the answer. Citations and search terms are
// taken from the side-channel payload; a later populated payload replaces an
// earlier one, since the provider emits the full set once, typically on the
// final message. An end-of-conversation activity stops the scan. Pure: no
// I/O, no mutation of the input.
func Extract(activities []model.Activity) Result {
	var b strings.Builder
	var result Result

	for _, a := range activities {
		if a.Type == model.ActivityEndOfConversation {
			break
		}
		if a.Type != model.ActivityMessage {
			continue
		}

		if a.Text != "" {
			b.WriteString(a.Text)
			b.WriteString(" ")
		}

		citations, terms := sideChannel(a.ChannelData)
		if len(citations) > 0 {
			result.Citations = citations
		}
		if len(terms) > 0 {
			result.SearchTerms = terms
		}
	}

	result.Answer = strings.TrimSpace(b.String())
	return result
}

// sideChannel digs the citation and search-term lists out of the provider's
// nested payload. The shape is uncontrolled by us, so every level is a
// capability check that degrades to nothing rather than erroring.
func sideChannel(channelData map[string]any) ([]model.Citation, []model.SearchTerm) {
	feedback, ok := channelData["pva:gpt-feedback"].(map[string]any)
	if !ok {
		return nil, nil
	}
	response, ok := feedback["summarizationOpenAIResponse"].(map[string]any)
	if !ok {
		return nil, nil
	}
	result, ok := response["result"].(map[string]any)
	if !ok {
		return nil, nil
	}

	var citations []model.Citation
	if items, ok := result["textCitations"].([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			citations = append(citations, model.Citation{
				Title: stringField(entry, "title"),
				URL:   stringField(entry, "url"),
				Text:  stringField(entry, "text"),
			})
		}
	}

	var terms []model.SearchTerm
	if items, ok := result["searchTerms"].([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			terms = append(terms, model.SearchTerm{
				Source: stringField(entry, "source"),
				Term:   stringField(entry, "term"),
			})
		}
	}

	return citations, terms
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
