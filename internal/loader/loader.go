package loader

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/moksha-hub/metabrainz-har/internal/filter"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
	"github.com/moksha-hub/metabrainz-har/pkg/har"
)

// maxConcurrentFiles bounds parallelism of multi-file scans.
const maxConcurrentFiles = 4

// Pair couples a canonical request with its response summary.
type Pair struct {
	Request  capture.Request         `json:"request"`
	Response capture.ResponseSummary `json:"response"`
}

// Loader extracts domain-filtered transactions from capture files. It holds
// no state across calls; every operation is a single pass over one file.
type Loader struct {
	filter *filter.Filter
	log    logger.Logger
}

// New creates a Loader using the given domain filter.
func New(f *filter.Filter, log logger.Logger) *Loader {
	return &Loader{filter: f, log: log}
}

// Pairs reads the capture file at path and returns the allowed transactions
// as a mapping keyed by the normalized request's fingerprint. A request that
// recurs with identical fields keeps only the last response seen, matching
// map overwrite semantics. File read and top-level decode failures are the
// only errors.
func (l *Loader) Pairs(path string) (map[string]Pair, error) {
	doc, err := har.ParseFile(path)
	if err != nil {
		return nil, err
	}

	pairs := make(map[string]Pair)
	for _, entry := range doc.Log.Entries {
		if !l.filter.Allowed(entry.Request.URL) {
			continue
		}
		req := capture.NormalizeRequest(entry.Request)
		pairs[req.Fingerprint()] = Pair{
			Request:  req,
			Response: capture.ExtractResponse(entry.Response),
		}
	}

	l.log.Debug("capture pairs loaded",
		"path", path,
		"entries", len(doc.Log.Entries),
		"matched", len(pairs))
	return pairs, nil
}

// URLDetails reads the capture file at path and returns a flattened summary
// per allowed transaction, preserving entry order. Entries without a URL are
// skipped before classification. Errors are the same as for Pairs.
func (l *Loader) URLDetails(path string) ([]capture.URLDetail, error) {
	doc, err := har.ParseFile(path)
	if err != nil {
		return nil, err
	}

	details := make([]capture.URLDetail, 0, len(doc.Log.Entries))
	for _, entry := range doc.Log.Entries {
		url := entry.Request.URL
		if url == "" || !l.filter.Allowed(url) {
			continue
		}
		method := entry.Request.Method
		if method == "" {
			method = "GET"
		}
		details = append(details, capture.URLDetail{
			Method:          method,
			URL:             url,
			ResponseType:    entry.Response.Content.MimeType,
			ResponsePreview: capture.Preview(entry.Response.Content.Text),
		})
	}

	l.log.Debug("capture urls loaded",
		"path", path,
		"entries", len(doc.Log.Entries),
		"matched", len(details))
	return details, nil
}

// URLDetailsAll runs URLDetails over several capture files with bounded
// concurrency and concatenates the results in argument order. The first
// failing file aborts the whole scan.
func (l *Loader) URLDetailsAll(ctx context.Context, paths []string) ([]capture.URLDetail, error) {
	results := make([][]capture.URLDetail, len(paths))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentFiles)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			details, err := l.URLDetails(path)
			if err != nil {
				return err
			}
			results[i] = details
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var all []capture.URLDetail
	for _, details := range results {
		all = append(all, details...)
	}
	return all, nil
}
