package rag

import (
	"strings"

	"github.com/m-mizutani/fitplan/pkg/model"
)

// NoContent replaces empty texts so that embedding requests never carry an
// empty input
const NoContent = "No content"

// ExtractText joins title (or name), description and content (or notes) with
// single spaces, skipping empty parts
func ExtractText(doc *model.SourceDocument) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{
		firstNonEmpty(doc.Title, doc.Name),
		doc.Description,
		firstNonEmpty(doc.Content, doc.Notes),
	} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return NoContent
	}
	return text
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
