// Package activity stores the entity activity stream: one entry per entity
// a domain event touches, queried per entity or by summary text.
package activity

import (
	"slices"
	"strings"
	"time"

	"github.com/matthewbaird/propmanage/internal/signals"
	"github.com/matthewbaird/propmanage/internal/types"
)

const (
	defaultQueryLimit  = 100
	maxQueryLimit      = 500
	defaultSearchLimit = 20
	defaultLookback    = 6 // months
)

// QueryOptions filters and paginates one entity's activity.
type QueryOptions struct {
	Since      *time.Time
	Until      *time.Time
	Categories []string
	MinWeight  string // entries below this weight are skipped; "" or "info" keeps all
	Limit      int    // 1..500, default 100
	Cursor     string // occurred_at of the last entry of the previous page
}

// SearchOptions filters a summary search.
type SearchOptions struct {
	EntityType string
	Since      *time.Time
	Categories []string
	Limit      int // default 20
}

// DefaultQueryOptions covers the six months up to now.
func DefaultQueryOptions(now time.Time) QueryOptions {
	since := now.AddDate(0, -defaultLookback, 0)
	return QueryOptions{
		Since:     &since,
		Until:     &now,
		MinWeight: "info",
		Limit:     defaultQueryLimit,
	}
}

// DefaultSearchOptions returns SearchOptions with the default limit.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Limit: defaultSearchLimit}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > maxQueryLimit {
		return defaultQueryLimit
	}
	return o.Limit
}

// cursor parses the page cursor. An unparsable cursor is ignored.
func (o QueryOptions) cursor() (time.Time, bool) {
	if o.Cursor == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, o.Cursor)
	return t, err == nil
}

func (o QueryOptions) filtersWeight() bool {
	return o.MinWeight != "" && o.MinWeight != "info"
}

// matches applies every filter except the cursor.
func (o QueryOptions) matches(e types.ActivityEntry) bool {
	switch {
	case o.Since != nil && e.OccurredAt.Before(*o.Since):
		return false
	case o.Until != nil && e.OccurredAt.After(*o.Until):
		return false
	case len(o.Categories) > 0 && !slices.Contains(o.Categories, e.Category):
		return false
	case o.filtersWeight() && !signals.IsAtLeastWeight(e.Weight, o.MinWeight):
		return false
	}
	return true
}

func (o SearchOptions) limit() int {
	if o.Limit <= 0 {
		return defaultSearchLimit
	}
	return o.Limit
}

// matches applies the search filters to an entry whose summary already
// contains the query.
func (o SearchOptions) matches(e types.ActivityEntry) bool {
	switch {
	case o.EntityType != "" && e.IndexedEntityType != o.EntityType:
		return false
	case o.Since != nil && e.OccurredAt.Before(*o.Since):
		return false
	case len(o.Categories) > 0 && !slices.Contains(o.Categories, e.Category):
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
