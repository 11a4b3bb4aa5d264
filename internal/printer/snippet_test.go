package printer

import (
	"strings"
	"testing"

	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

func TestResponseSnippetJSONCompacted(t *testing.T) {
	got := ResponseSnippet(capture.ResponseSummary{
		Text: "{\n  \"id\": 1,\n  \"name\": \"Tool\"\n}",
		Type: "application/json; charset=utf-8",
	})
	if got != `{"id":1,"name":"Tool"}` {
		t.Errorf("unexpected snippet: %q", got)
	}
}

func TestResponseSnippetHTMLTitle(t *testing.T) {
	doc := `<!DOCTYPE html><html><head><title>  MusicBrainz - Artist </title></head><body><p>ignored</p></body></html>`
	got := ResponseSnippet(capture.ResponseSummary{Text: doc, Type: "text/html"})
	if got != "<MusicBrainz - Artist>" {
		t.Errorf("unexpected snippet: %q", got)
	}
}

func TestResponseSnippetHTMLWithoutTitle(t *testing.T) {
	got := ResponseSnippet(capture.ResponseSummary{Text: "<p>plain   fragment</p>", Type: "text/html"})
	if got != "<p>plain fragment</p>" {
		t.Errorf("unexpected snippet: %q", got)
	}
}

func TestResponseSnippetTruncatesLongText(t *testing.T) {
	got := ResponseSnippet(capture.ResponseSummary{Text: strings.Repeat("a", 500), Type: "text/plain"})
	if len([]rune(got)) != snippetLimit+1 {
		t.Errorf("expected truncated snippet with ellipsis, got %d runes", len([]rune(got)))
	}
}

func TestResponseSnippetEmpty(t *testing.T) {
	if got := ResponseSnippet(capture.ResponseSummary{}); got != "" {
		t.Errorf("expected empty snippet, got %q", got)
	}
}

func TestFormatRequestBody(t *testing.T) {
	if got := formatRequestBody(nil); got != "" {
		t.Errorf("nil body should render empty, got %q", got)
	}
	if got := formatRequestBody("raw text"); got != "raw text" {
		t.Errorf("string body should pass through, got %q", got)
	}
	decoded := map[string]any{"a": float64(1)}
	if got := formatRequestBody(decoded); !strings.Contains(got, `"a": 1`) {
		t.Errorf("decoded body should pretty-print, got %q", got)
	}
}
