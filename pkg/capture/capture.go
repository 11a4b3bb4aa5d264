package capture

import (
	"encoding/json"
	"strings"

	"github.com/moksha-hub/metabrainz-har/pkg/har"
)

// PreviewLength is the number of leading characters of a response body kept
// in a URLDetail preview.
const PreviewLength = 30

// Request is the canonical, defaulted form of a raw HAR request record.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	// QueryParams is nil when the source record carried no query string,
	// which is distinct from an empty map.
	QueryParams map[string]string `json:"query_params,omitempty"`
	// Body is absent (nil), the raw post text (string), or the decoded
	// value when the content type declared JSON and the text parsed.
	Body any `json:"body,omitempty"`
}

// ResponseSummary is the projected response body and its declared MIME type.
type ResponseSummary struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// URLDetail is a flattened one-line summary of a transaction.
type URLDetail struct {
	Method          string `json:"method"`
	URL             string `json:"url"`
	ResponseType    string `json:"response_type"`
	ResponsePreview string `json:"response_preview"`
}

// NormalizeRequest maps a raw request record into its canonical form.
// Missing fields are defaulted, duplicate header and query names keep the
// last occurrence, and a JSON body is decoded best-effort: if the text is
// not valid JSON it stays as the raw string. This never fails.
func NormalizeRequest(raw har.Request) Request {
	req := Request{
		Method:  raw.Method,
		URL:     raw.URL,
		Headers: make(map[string]string, len(raw.Headers)),
	}
	if req.Method == "" {
		req.Method = "GET"
	}

	for _, h := range raw.Headers {
		req.Headers[h.Name] = h.Value
	}

	if len(raw.QueryString) > 0 {
		req.QueryParams = make(map[string]string, len(raw.QueryString))
		for _, p := range raw.QueryString {
			req.QueryParams[p.Name] = p.Value
		}
	}

	if raw.PostData != nil && raw.PostData.Text != "" {
		req.Body = raw.PostData.Text
		if isJSONContentType(req.Headers) {
			var decoded any
			if err := json.Unmarshal([]byte(raw.PostData.Text), &decoded); err == nil {
				req.Body = decoded
			}
		}
	}

	return req
}

// isJSONContentType reports whether a content-type header, matched
// case-insensitively by name, declares a JSON payload.
func isJSONContentType(headers map[string]string) bool {
	for name, value := range headers {
		if strings.EqualFold(name, "content-type") {
			return strings.Contains(strings.ToLower(value), "application/json")
		}
	}
	return false
}

// Fingerprint returns a stable identity string derived from every
// normalized field. Two requests equal on all fields share a fingerprint;
// map keys are emitted sorted so the encoding is deterministic.
func (r Request) Fingerprint() string {
	data, err := json.Marshal(r)
	if err != nil {
		// Only unmarshalable body values can end up here, and normalized
		// bodies are strings or json.Unmarshal output.
		return r.Method + " " + r.URL
	}
	return string(data)
}

// ExtractResponse projects the response content text and MIME type,
// defaulting both to empty strings. Pure projection, never fails.
func ExtractResponse(raw har.Response) ResponseSummary {
	return ResponseSummary{
		Text: raw.Content.Text,
		Type: raw.Content.MimeType,
	}
}

// Preview truncates text to the first PreviewLength characters.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength])
}
