package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/copilot-qa/internal/model"
)

// citationDelimiter separates citation entries in the rendered columns.
const citationDelimiter = "\n\n"

// excerptRunes caps the citation excerpt length in the summary column.
const excerptRunes = 200

// placeholder renders for any missing citation or search-term field.
const placeholder = "N/A"

// FormatCitations renders a human-readable summary of the citations: title,
// url, and a truncated excerpt per citation, entries separated by a blank
// line. Missing fields render as "N/A" rather than being omitted.
func FormatCitations(citations []model.Citation) string {
	if len(citations) == 0 {
		return ""
	}

	entries := make([]string, 0, len(citations))
	for _, c := range citations {
		entries = append(entries, fmt.Sprintf("Title: %s\nURL: %s\nText: %s",
			orPlaceholder(c.Title), orPlaceholder(c.URL), excerpt(c.Text)))
	}
	return strings.Join(entries, citationDelimiter)
}

// FormatCitationTexts renders the full, untruncated citation texts, separated
// by a blank line.
func FormatCitationTexts(citations []model.Citation) string {
	if len(citations) == 0 {
		return ""
	}

	entries := make([]string, 0, len(citations))
	for _, c := range citations {
		entries = append(entries, orPlaceholder(c.Text))
	}
	return strings.Join(entries, citationDelimiter)
}

// FormatSearchTerms renders newline-joined "source, term" pairs.
func FormatSearchTerms(terms []model.SearchTerm) string {
	if len(terms) == 0 {
		return ""
	}

	lines := make([]string, 0, len(terms))
	for _, st := range terms {
		lines = append(lines, fmt.Sprintf("%s, %s", orPlaceholder(st.Source), orPlaceholder(st.Term)))
	}
	return strings.Join(lines, "\n")
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func excerpt(s string) string {
	if s == "" {
		return placeholder
	}
	runes := []rune(s)
	if len(runes) <= excerptRunes {
		return s
	}
	return string(runes[:excerptRunes]) + "..."
}
