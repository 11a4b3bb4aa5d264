package printer

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	nethtml "golang.org/x/net/html"

	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

const snippetLimit = 120

// formatRequestBody renders a normalized request body for console display.
// Decoded JSON bodies are re-indented; raw text passes through.
func formatRequestBody(body any) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(pretty)
	}
}

// ResponseSnippet produces a compact single-line rendering of a response
// body for console blocks. HTML documents collapse to their title, JSON is
// compacted, everything else is whitespace-normalized and truncated.
func ResponseSnippet(summary capture.ResponseSummary) string {
	if summary.Text == "" {
		return ""
	}

	mediaType := normalizeMediaType(summary.Type)
	switch {
	case strings.Contains(mediaType, "html"):
		if title := htmlTitle(summary.Text); title != "" {
			return "<" + title + ">"
		}
	case strings.Contains(mediaType, "json"):
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(summary.Text)); err == nil {
			return truncateSnippet(buf.String())
		}
	}
	return truncateSnippet(strings.Join(strings.Fields(summary.Text), " "))
}

func truncateSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit]) + "…"
}

func normalizeMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

// htmlTitle returns the text of the document's <title> element, or "".
// The tokenizer is forgiving, so truncated or invalid markup still yields
// whatever title text precedes the damage.
func htmlTitle(doc string) string {
	tokenizer := nethtml.NewTokenizer(strings.NewReader(doc))
	inTitle := false
	for {
		switch tokenizer.Next() {
		case nethtml.ErrorToken:
			return ""
		case nethtml.StartTagToken:
			name, _ := tokenizer.TagName()
			inTitle = string(name) == "title"
		case nethtml.EndTagToken:
			inTitle = false
		case nethtml.TextToken:
			if inTitle {
				if title := strings.TrimSpace(string(tokenizer.Text())); title != "" {
					return title
				}
			}
		}
	}
}
