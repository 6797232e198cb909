// Package adlibrary retrieves competitor ads from the Meta Ad Library,
// either through the Apify scraping actor or from local fixtures.
package adlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"adspy/config"
)

// Query describes one ad library search.
type Query struct {
	SearchTerm string
	Country    string
	ActiveOnly bool
	Limit      int
	// ManualURL replaces the generated search URL when set.
	ManualURL string
}

// Source yields raw ad objects for a query.
type Source interface {
	Fetch(ctx context.Context, q Query) ([]json.RawMessage, error)
}

func (q Query) withDefaults() Query {
	if q.Country == "" {
		q.Country = config.DefaultCountry
	}
	if q.Limit <= 0 {
		q.Limit = config.DefaultLimit
	}
	return q
}

// SearchURL builds the Ad Library search page URL the actor scrapes.
func SearchURL(q Query) string {
	q = q.withDefaults()
	status := "all"
	if q.ActiveOnly {
		status = "active"
	}
	return fmt.Sprintf(
		"%s?active_status=%s&ad_type=all&country=%s&q=%s&sort_data[direction]=desc&sort_data[mode]=relevancy_monthly_grouped&media_type=all",
		config.AdLibraryBaseURL,
		status,
		url.QueryEscape(strings.ToUpper(q.Country)),
		url.QueryEscape(q.SearchTerm),
	)
}

// TargetURL is the manual URL when given, otherwise the generated search URL.
func TargetURL(q Query) string {
	if strings.TrimSpace(q.ManualURL) != "" {
		return strings.TrimSpace(q.ManualURL)
	}
	return SearchURL(q)
}

func capItems(items []json.RawMessage, limit int) []json.RawMessage {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
