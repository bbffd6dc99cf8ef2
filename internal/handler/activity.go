package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/propmanage/internal/activity"
	"github.com/matthewbaird/propmanage/internal/signals"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// signalLookback is how far back a signal summary reaches.
const signalLookback = 12 // months

// ActivityHandler serves the activity stream and the signal summaries
// built on it. It reads the activity store only.
type ActivityHandler struct {
	activity activity.Store
	store    *store.Store
	now      func() time.Time
}

// NewActivityHandler creates a new ActivityHandler. A nil now uses
// time.Now.
func NewActivityHandler(a activity.Store, s *store.Store, now func() time.Time) *ActivityHandler {
	if now == nil {
		now = time.Now
	}
	return &ActivityHandler{activity: a, store: s, now: now}
}

type period struct {
	Since *time.Time `json:"since"`
	Until *time.Time `json:"until"`
}

type activityPage struct {
	Activities []types.ActivityEntry `json:"activities"`
	NextCursor string                `json:"next_cursor,omitempty"`
	TotalCount int                   `json:"total_count"`
	Period     period                `json:"period"`
}

type searchResults struct {
	Results    []types.ActivityEntry `json:"results"`
	TotalCount int                   `json:"total_count"`
}

// EntityActivity returns one entity's feed, newest first.
// GET /api/activity/{entity_type}/{entity_id}
func (h *ActivityHandler) EntityActivity(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := chi.URLParam(r, "entity_type"), chi.URLParam(r, "entity_id")
	if entityType == "" || entityID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "entity_type and entity_id are required")
		return
	}
	opts, ok := h.queryOptions(w, r)
	if !ok {
		return
	}

	entries, next, total, err := h.activity.QueryByEntity(r.Context(), entityType, entityID, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activityPage{
		Activities: nonNil(entries),
		NextCursor: next,
		TotalCount: total,
		Period:     period{Since: opts.Since, Until: opts.Until},
	})
}

// queryOptions reads the feed filters from the query string on top of the
// six month default window. Limits above 500 are capped.
func (h *ActivityHandler) queryOptions(w http.ResponseWriter, r *http.Request) (activity.QueryOptions, bool) {
	q := r.URL.Query()
	opts := activity.DefaultQueryOptions(h.now())
	since, ok := parseTimeQuery(w, r, "since")
	if !ok {
		return opts, false
	}
	until, ok := parseTimeQuery(w, r, "until")
	if !ok {
		return opts, false
	}
	if since != nil {
		opts.Since = since
	}
	if until != nil {
		opts.Until = until
	}
	if cats := q.Get("categories"); cats != "" {
		opts.Categories = strings.Split(cats, ",")
	}
	if mw := q.Get("min_weight"); mw != "" {
		opts.MinWeight = mw
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		opts.Limit = min(n, 500)
	}
	opts.Cursor = q.Get("cursor")
	return opts, true
}

func nonNil(entries []types.ActivityEntry) []types.ActivityEntry {
	if entries == nil {
		return []types.ActivityEntry{}
	}
	return entries
}

// TenantSignals aggregates a tenant's recent activity into a signal
// summary with escalations.
// GET /api/tenants/{id}/signals
func (h *ActivityHandler) TenantSignals(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetTenant(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	until := h.now()
	since := until.AddDate(0, -signalLookback, 0)
	entityID := strconv.FormatInt(id, 10)
	entries, _, _, err := h.activity.QueryByEntity(r.Context(), "tenant", entityID, activity.QueryOptions{
		Since: &since,
		Until: &until,
		Limit: 500,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signals.Aggregate(entries, "tenant", entityID, since, until))
}

// Search finds entries whose summary contains the query, ignoring case.
// POST /api/activity/search
func (h *ActivityHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string     `json:"query" validate:"required"`
		EntityType string     `json:"entity_type,omitempty"`
		Since      *time.Time `json:"since,omitempty"`
		Categories []string   `json:"categories,omitempty"`
		Limit      int        `json:"limit,omitempty" validate:"gte=0,lte=500"`
	}
	if !decodeAndValidate(r.Context(), w, r, &req) {
		return
	}

	opts := activity.DefaultSearchOptions()
	opts.EntityType = req.EntityType
	opts.Since = req.Since
	opts.Categories = req.Categories
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}

	entries, totalCount, err := h.activity.Search(r.Context(), req.Query, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResults{Results: nonNil(entries), TotalCount: totalCount})
}
