package filter

import (
	"net/url"
	"strings"
)

// MetaBrainzDomains is the default allow-list: the host substrings that
// identify the MetaBrainz project family.
var MetaBrainzDomains = []string{
	"musicbrainz.org",
	"bookbrainz.org",
	"metabrainz.org",
	"listenbrainz.org",
	"coverartarchive.org",
	"acousticbrainz.org",
}

// Filter decides whether a URL belongs to the configured domain family.
// The domain list is fixed at construction; callers reconfigure by building
// a new Filter, never by mutating a shared one.
type Filter struct {
	domains []string
}

// New creates a Filter over the given host substrings. Blank and duplicate
// entries are dropped; an empty result falls back to MetaBrainzDomains.
func New(domains []string) *Filter {
	seen := make(map[string]struct{}, len(domains))
	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		cleaned = append(cleaned, d)
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, MetaBrainzDomains...)
	}
	return &Filter{domains: cleaned}
}

// Domains returns a copy of the configured allow-list.
func (f *Filter) Domains() []string {
	out := make([]string, len(f.domains))
	copy(out, f.domains)
	return out
}

// Allowed reports whether any configured domain is a substring of the host
// component of rawURL. URLs that fail to parse are treated as not matching,
// consistent with the missing-data-means-skip policy everywhere else.
func (f *Filter) Allowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, domain := range f.domains {
		if strings.Contains(host, domain) {
			return true
		}
	}
	return false
}
