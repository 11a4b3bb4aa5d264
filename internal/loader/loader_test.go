package loader

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/moksha-hub/metabrainz-har/internal/filter"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

func newTestLoader() *Loader {
	return New(filter.New(nil), noopLogger{})
}

func writeCapture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.har")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write capture fixture: %v", err)
	}
	return path
}

const mixedCapture = `{
  "log": {
    "entries": [
      {
        "request": {
          "method": "GET",
          "url": "https://musicbrainz.org/ws/2/artist",
          "headers": [{"name": "Accept", "value": "application/json"}]
        },
        "response": {
          "content": {"text": "{\"id\":1}", "mimeType": "application/json"}
        }
      },
      {
        "request": {"method": "GET", "url": "https://example.com/x"},
        "response": {"content": {"text": "nope", "mimeType": "text/plain"}}
      },
      {
        "request": {
          "method": "POST",
          "url": "https://listenbrainz.org/1/submit-listens",
          "headers": [{"name": "Content-Type", "value": "application/json"}],
          "postData": {"text": "{\"listens\":[]}"}
        },
        "response": {
          "content": {"text": "{\"status\":\"ok\"}", "mimeType": "application/json"}
        }
      }
    ]
  }
}`

func TestPairsFiltersAndNormalizes(t *testing.T) {
	path := writeCapture(t, mixedCapture)

	pairs, err := newTestLoader().Pairs(path)
	if err != nil {
		t.Fatalf("pairs failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	var artist *Pair
	for _, pair := range pairs {
		pair := pair
		if pair.Request.URL == "https://musicbrainz.org/ws/2/artist" {
			artist = &pair
		}
		if pair.Request.URL == "https://example.com/x" {
			t.Error("non-matching host must not appear in pairs")
		}
	}
	if artist == nil {
		t.Fatal("expected musicbrainz artist entry in pairs")
	}
	if artist.Request.Method != "GET" {
		t.Errorf("unexpected method: %q", artist.Request.Method)
	}
	if artist.Request.Headers["Accept"] != "application/json" {
		t.Errorf("unexpected headers: %v", artist.Request.Headers)
	}
	if artist.Request.QueryParams != nil {
		t.Errorf("expected absent query params, got %v", artist.Request.QueryParams)
	}
	if artist.Request.Body != nil {
		t.Errorf("expected absent body, got %v", artist.Request.Body)
	}
	if artist.Response.Text != `{"id":1}` || artist.Response.Type != "application/json" {
		t.Errorf("unexpected response summary: %+v", artist.Response)
	}
}

func TestPairsDuplicateRequestLastWriteWins(t *testing.T) {
	path := writeCapture(t, `{
  "log": {
    "entries": [
      {
        "request": {"method": "GET", "url": "https://musicbrainz.org/ws/2/artist"},
        "response": {"content": {"text": "first", "mimeType": "text/plain"}}
      },
      {
        "request": {"method": "GET", "url": "https://musicbrainz.org/ws/2/artist"},
        "response": {"content": {"text": "second", "mimeType": "text/plain"}}
      }
    ]
  }
}`)

	pairs, err := newTestLoader().Pairs(path)
	if err != nil {
		t.Fatalf("pairs failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("identical requests should collapse to one pair, got %d", len(pairs))
	}
	for _, pair := range pairs {
		if pair.Response.Text != "second" {
			t.Errorf("expected later response to win, got %q", pair.Response.Text)
		}
	}
}

func TestURLDetailsOrderAndPreview(t *testing.T) {
	path := writeCapture(t, mixedCapture)

	details, err := newTestLoader().URLDetails(path)
	if err != nil {
		t.Fatalf("url details failed: %v", err)
	}
	want := []capture.URLDetail{
		{
			Method:          "GET",
			URL:             "https://musicbrainz.org/ws/2/artist",
			ResponseType:    "application/json",
			ResponsePreview: `{"id":1}`,
		},
		{
			Method:          "POST",
			URL:             "https://listenbrainz.org/1/submit-listens",
			ResponseType:    "application/json",
			ResponsePreview: `{"status":"ok"}`,
		},
	}
	if !reflect.DeepEqual(details, want) {
		t.Errorf("unexpected details:\n got %+v\nwant %+v", details, want)
	}
}

func TestURLDetailsSkipsMissingURL(t *testing.T) {
	path := writeCapture(t, `{
  "log": {
    "entries": [
      {"request": {"method": "GET"}, "response": {}},
      {"request": {"url": "https://metabrainz.org/donate"},
       "response": {"content": {"text": "`+strings.Repeat("x", 40)+`", "mimeType": "text/html"}}}
    ]
  }
}`)

	details, err := newTestLoader().URLDetails(path)
	if err != nil {
		t.Fatalf("url details failed: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(details))
	}
	if details[0].Method != "GET" {
		t.Errorf("missing method should default to GET, got %q", details[0].Method)
	}
	if details[0].ResponsePreview != strings.Repeat("x", 30) {
		t.Errorf("preview should truncate to 30 chars, got %q", details[0].ResponsePreview)
	}
}

func TestLoaderEmptyAndMissingSections(t *testing.T) {
	l := newTestLoader()

	for _, doc := range []string{`{}`, `{"log": {}}`, `{"log": {"entries": []}}`} {
		path := writeCapture(t, doc)
		pairs, err := l.Pairs(path)
		if err != nil {
			t.Fatalf("pairs failed for %s: %v", doc, err)
		}
		if len(pairs) != 0 {
			t.Errorf("expected empty pairs for %s, got %v", doc, pairs)
		}
		details, err := l.URLDetails(path)
		if err != nil {
			t.Fatalf("url details failed for %s: %v", doc, err)
		}
		if len(details) != 0 {
			t.Errorf("expected no details for %s, got %v", doc, details)
		}
	}
}

func TestLoaderFatalErrors(t *testing.T) {
	l := newTestLoader()

	if _, err := l.Pairs(filepath.Join(t.TempDir(), "missing.har")); err == nil {
		t.Error("expected error for missing file")
	}
	path := writeCapture(t, "{not json")
	if _, err := l.Pairs(path); err == nil {
		t.Error("expected error for malformed document")
	}
	if _, err := l.URLDetails(path); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestLoaderIdempotent(t *testing.T) {
	path := writeCapture(t, mixedCapture)
	l := newTestLoader()

	first, err := l.Pairs(path)
	if err != nil {
		t.Fatalf("pairs failed: %v", err)
	}
	second, err := l.Pairs(path)
	if err != nil {
		t.Fatalf("pairs failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated loads should produce equal pair mappings")
	}

	firstDetails, err := l.URLDetails(path)
	if err != nil {
		t.Fatalf("url details failed: %v", err)
	}
	secondDetails, err := l.URLDetails(path)
	if err != nil {
		t.Fatalf("url details failed: %v", err)
	}
	if !reflect.DeepEqual(firstDetails, secondDetails) {
		t.Error("repeated loads should produce equal detail lists")
	}
}

func TestURLDetailsAll(t *testing.T) {
	l := newTestLoader()
	first := writeCapture(t, mixedCapture)
	second := writeCapture(t, `{
  "log": {
    "entries": [
      {"request": {"method": "GET", "url": "https://bookbrainz.org/search"},
       "response": {"content": {"text": "[]", "mimeType": "application/json"}}}
    ]
  }
}`)

	all, err := l.URLDetailsAll(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("multi-file scan failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 details, got %d", len(all))
	}
	// Results keep argument order regardless of completion order.
	if all[0].URL != "https://musicbrainz.org/ws/2/artist" {
		t.Errorf("unexpected first detail: %+v", all[0])
	}
	if all[2].URL != "https://bookbrainz.org/search" {
		t.Errorf("unexpected last detail: %+v", all[2])
	}

	if _, err := l.URLDetailsAll(context.Background(), []string{first, "does/not/exist.har"}); err == nil {
		t.Error("expected error when any file fails")
	}
}
