package printer

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/moksha-hub/metabrainz-har/internal/loader"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

// JSONPrinter emits one JSON line per extracted record.
type JSONPrinter struct {
	encoder *json.Encoder
	logger  logger.Logger
	out     io.Writer
}

// NewJSONPrinter creates a JSON-lines printer writing to stdout.
func NewJSONPrinter(log logger.Logger) *JSONPrinter {
	out := os.Stdout
	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	return &JSONPrinter{encoder: encoder, logger: log, out: out}
}

// SetOutput replaces the output target, used by tests.
func (p *JSONPrinter) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	p.out = w
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	p.encoder = encoder
}

type jsonDetailEnvelope struct {
	Type   string            `json:"type"`
	Source string            `json:"source"`
	Seq    int               `json:"seq"`
	Detail capture.URLDetail `json:"detail"`
}

type jsonPairEnvelope struct {
	Type     string                  `json:"type"`
	Source   string                  `json:"source"`
	Request  capture.Request         `json:"request"`
	Response capture.ResponseSummary `json:"response"`
}

// PrintDetails writes one url_detail line per summary, in entry order.
func (p *JSONPrinter) PrintDetails(source string, details []capture.URLDetail) error {
	for i, detail := range details {
		env := jsonDetailEnvelope{Type: "url_detail", Source: source, Seq: i, Detail: detail}
		if err := p.encoder.Encode(env); err != nil {
			if p.logger != nil {
				p.logger.Error("Failed to encode url detail JSON", "error", err)
			}
			return err
		}
	}
	return nil
}

// PrintPairs writes one pair line per mapping entry. Map iteration order is
// random, so entries are emitted sorted by fingerprint to keep output stable.
func (p *JSONPrinter) PrintPairs(source string, pairs map[string]loader.Pair) error {
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		pair := pairs[key]
		env := jsonPairEnvelope{Type: "pair", Source: source, Request: pair.Request, Response: pair.Response}
		if err := p.encoder.Encode(env); err != nil {
			if p.logger != nil {
				p.logger.Error("Failed to encode pair JSON", "error", err)
			}
			return err
		}
	}
	return nil
}
