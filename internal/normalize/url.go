// Package normalize canonicalizes item URLs and text so that identity
// derivation (content hashes, publisher domains, topic signatures) is stable
// across runs.
package normalize

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// trackingParams are query parameters stripped during URL canonicalization.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"msclkid":      {},
	"_ga":          {},
	"mc_cid":       {},
	"mc_eid":       {},
	"ref":          {},
	"source":       {},
	"campaign_id":  {},
	"ad_id":        {},
}

// CanonicalURL normalizes a URL for identity comparison: lowercases the
// scheme and host, strips tracking parameters and the fragment, and rebuilds
// the remaining query in sorted key order.
func CanonicalURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	if parsed.RawQuery != "" {
		parsed.RawQuery = cleanQuery(parsed.Query())
	}

	return parsed.String(), nil
}

func cleanQuery(values url.Values) string {
	keys := make([]string, 0, len(values))

	for k := range values {
		if _, tracked := trackingParams[strings.ToLower(k)]; tracked {
			continue
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}

			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}

	return b.String()
}

// domainCache memoizes eTLD+1 lookups. It is process-wide and read-mostly;
// population is idempotent so concurrent feed fetches can share it.
var domainCache sync.Map

// PublisherDomain resolves the registrable domain (eTLD+1, without a www
// prefix) for a URL using the compiled-in public suffix table. The table
// ships with the binary, so repeated runs never fetch suffix data.
func PublisherDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())

	if cached, ok := domainCache.Load(host); ok {
		return cached.(string)
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Bare hosts (localhost, IPs) have no registrable domain.
		domain = strings.TrimPrefix(host, "www.")
	}

	domain = strings.TrimPrefix(domain, "www.")

	domainCache.Store(host, domain)

	return domain
}
