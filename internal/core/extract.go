package core

import (
	"strings"

	"github.com/jaytaylor/html2text"
)

// ExtractText flattens a message's MIME part tree into a single plain-text
// string for classification. Plain-text parts win: if any text/plain part
// exists anywhere in the tree, the result is the concatenation of all plain
// parts and no HTML content is included. Only when there is no plain part
// does it fall back to the markup-stripped concatenation of text/html parts.
// Non-text parts (images, attachments, binary) are always skipped, and a nil
// or malformed tree yields the empty string.
func ExtractText(body *BodyPart) string {
	var plain, html []string
	collectTextParts(body, &plain, &html)

	if len(plain) > 0 {
		return strings.TrimSpace(strings.Join(plain, "\n"))
	}

	stripped := make([]string, 0, len(html))
	for _, h := range html {
		text, err := html2text.FromString(h, html2text.Options{TextOnly: true})
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			stripped = append(stripped, text)
		}
	}
	return strings.TrimSpace(strings.Join(stripped, "\n"))
}

// collectTextParts buckets text-bearing leaves across the whole subtree so
// that multipart/alternative content is not counted once as text and again
// as markup.
func collectTextParts(part *BodyPart, plain, html *[]string) {
	if part == nil {
		return
	}

	for _, child := range part.Parts {
		collectTextParts(child, plain, html)
	}

	if part.Data == "" {
		return
	}

	mimeType := strings.ToLower(part.MIMEType)
	switch {
	case strings.HasPrefix(mimeType, "text/plain"):
		*plain = append(*plain, part.Data)
	case strings.HasPrefix(mimeType, "text/html"):
		*html = append(*html, part.Data)
	}
}
