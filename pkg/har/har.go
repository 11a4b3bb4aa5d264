package har

import (
	"encoding/json"
	"fmt"
	"os"
)

// File is the root object of a browser-exported HAR document.
type File struct {
	Log Log `json:"log"`
}

// Log holds the recorded transaction entries.
type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Entries []Entry `json:"entries"`
}

// Creator identifies the exporting tool.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry is a single HTTP transaction: one request and its response.
type Entry struct {
	StartedDateTime string   `json:"startedDateTime"`
	Time            float64  `json:"time"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
}

// Request is the raw request record of an entry. Every field is optional
// in practice; absent fields unmarshal to their zero values.
type Request struct {
	Method      string          `json:"method"`
	URL         string          `json:"url"`
	HTTPVersion string          `json:"httpVersion"`
	Headers     []NameValuePair `json:"headers"`
	QueryString []NameValuePair `json:"queryString"`
	PostData    *PostData       `json:"postData"`
}

// Response is the raw response record of an entry.
type Response struct {
	Status      int             `json:"status"`
	StatusText  string          `json:"statusText"`
	HTTPVersion string          `json:"httpVersion"`
	Headers     []NameValuePair `json:"headers"`
	Content     Content         `json:"content"`
}

// NameValuePair is the header/query-parameter element shape.
type NameValuePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PostData carries the request body text.
type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// Content carries the response body and its declared MIME type.
type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// Parse decodes a HAR document from raw bytes.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse har document: %w", err)
	}
	return &f, nil
}

// ParseFile reads and decodes the HAR document at path. The whole file is
// loaded at once; read and decode failures are both fatal to the caller.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read har file: %w", err)
	}
	return Parse(data)
}
