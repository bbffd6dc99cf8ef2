package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/matthewbaird/propmanage/internal/signals"
	"github.com/matthewbaird/propmanage/internal/types"
)

// Store is the interface for reading and writing activity entries.
// ActivityEntry rows live in their own table next to the billing tables and
// are written only through this interface.
type Store interface {
	// WriteEntries writes one or more activity entries (one event → many entries).
	WriteEntries(ctx context.Context, entries []types.ActivityEntry) error

	// QueryByEntity returns activity entries for a specific entity.
	QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) (entries []types.ActivityEntry, nextCursor string, totalCount int, err error)

	// Search performs case-insensitive substring search across activity summaries.
	Search(ctx context.Context, query string, opts SearchOptions) (entries []types.ActivityEntry, totalCount int, err error)
}

// timeLayout is fixed width so that text comparison in SQL orders the same
// way as time comparison.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

var (
	// EntriesColumns holds the columns for the "activity_entries" table.
	EntriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "event_id", Type: field.TypeString, Size: 36},
		{Name: "event_type", Type: field.TypeString},
		{Name: "occurred_at", Type: field.TypeString, Size: 35},
		{Name: "indexed_entity_type", Type: field.TypeString, Size: 32},
		{Name: "indexed_entity_id", Type: field.TypeString, Size: 64},
		{Name: "entity_role", Type: field.TypeString, Size: 16},
		{Name: "source_refs", Type: field.TypeString, Size: 4096, Default: "[]"},
		{Name: "summary", Type: field.TypeString, Size: 1024},
		{Name: "category", Type: field.TypeString, Size: 32},
		{Name: "weight", Type: field.TypeString, Size: 16},
		{Name: "polarity", Type: field.TypeString, Size: 16},
		{Name: "payload", Type: field.TypeString, Size: 8192, Nullable: true},
	}
	// EntriesTable holds the schema information for the "activity_entries" table.
	EntriesTable = &schema.Table{
		Name:       "activity_entries",
		Columns:    EntriesColumns,
		PrimaryKey: []*schema.Column{EntriesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "activity_event_entity",
				Unique:  true,
				Columns: []*schema.Column{EntriesColumns[1], EntriesColumns[4], EntriesColumns[5]},
			},
			{
				Name:    "activity_entity_time",
				Columns: []*schema.Column{EntriesColumns[4], EntriesColumns[5], EntriesColumns[3]},
			},
		},
	}
)

var entryColumns = []string{
	"event_id", "event_type", "occurred_at", "indexed_entity_type", "indexed_entity_id",
	"entity_role", "source_refs", "summary", "category", "weight", "polarity", "payload",
}

// SQLStore implements Store on the service's SQLite database through ent's
// SQL builders.
type SQLStore struct {
	drv     *entsql.Driver
	builder *entsql.DialectBuilder
}

// NewSQLStore creates a new SQLStore on the given driver.
func NewSQLStore(drv *entsql.Driver) *SQLStore {
	return &SQLStore{drv: drv, builder: entsql.Dialect(drv.Dialect())}
}

// Migrate creates the activity_entries table and its indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Create(ctx, EntriesTable); err != nil {
		return fmt.Errorf("migrating activity entries: %w", err)
	}
	return nil
}

// WriteEntries inserts activity entries. Re-writing an entry for the same
// event and entity is a no-op.
func (s *SQLStore) WriteEntries(ctx context.Context, entries []types.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ins := s.builder.Insert("activity_entries").Columns(entryColumns...)
	for _, e := range entries {
		refsJSON, _ := json.Marshal(e.SourceRefs)
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		ins.Values(
			e.EventID, e.EventType, formatTime(e.OccurredAt), e.IndexedEntityType, e.IndexedEntityID,
			e.EntityRole, string(refsJSON), e.Summary, e.Category, e.Weight, e.Polarity, payload,
		)
	}
	ins.OnConflict(entsql.DoNothing())

	query, args := ins.Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("writing activity entries: %w", err)
	}
	return nil
}

// QueryByEntity returns activity entries for a specific entity with filtering and pagination.
func (s *SQLStore) QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) ([]types.ActivityEntry, string, int, error) {
	limit := opts.limit()
	sel := s.builder.Select(entryColumns...).
		From(entsql.Table("activity_entries")).
		Where(entityPredicate(entityType, entityID, opts, true)).
		OrderBy(entsql.Desc("occurred_at"), entsql.Desc("id")).
		Limit(limit + 1) // one extra tells us whether a next page exists
	entries, err := s.selectEntries(ctx, sel)
	if err != nil {
		return nil, "", 0, err
	}

	var nextCursor string
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}

	// The total ignores the cursor so it stays stable across pages.
	total, err := s.count(ctx, entityPredicate(entityType, entityID, opts, false))
	if err != nil {
		return nil, "", 0, err
	}
	return entries, nextCursor, total, nil
}

// Search performs case-insensitive substring search across activity summaries.
func (s *SQLStore) Search(ctx context.Context, query string, opts SearchOptions) ([]types.ActivityEntry, int, error) {
	sel := s.builder.Select(entryColumns...).
		From(entsql.Table("activity_entries")).
		Where(searchPredicate(query, opts)).
		OrderBy(entsql.Desc("occurred_at"), entsql.Desc("id")).
		Limit(opts.limit())
	entries, err := s.selectEntries(ctx, sel)
	if err != nil {
		return nil, 0, fmt.Errorf("searching activity entries: %w", err)
	}

	total, err := s.count(ctx, searchPredicate(query, opts))
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// entityPredicate builds the filter for QueryByEntity. Predicates are built
// fresh for every statement.
func entityPredicate(entityType, entityID string, opts QueryOptions, withCursor bool) *entsql.Predicate {
	preds := []*entsql.Predicate{
		entsql.EQ("indexed_entity_type", entityType),
		entsql.EQ("indexed_entity_id", entityID),
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", formatTime(*opts.Since)))
	}
	if opts.Until != nil {
		preds = append(preds, entsql.LTE("occurred_at", formatTime(*opts.Until)))
	}
	if len(opts.Categories) > 0 {
		preds = append(preds, entsql.In("category", stringArgs(opts.Categories)...))
	}
	if opts.filtersWeight() {
		maxSeverity := signals.WeightSeverity(opts.MinWeight)
		var weights []string
		for w, sev := range signals.WeightOrder {
			if sev <= maxSeverity {
				weights = append(weights, w)
			}
		}
		if len(weights) > 0 {
			preds = append(preds, entsql.In("weight", stringArgs(weights)...))
		}
	}
	if before, ok := opts.cursor(); withCursor && ok {
		preds = append(preds, entsql.LT("occurred_at", formatTime(before)))
	}
	return entsql.And(preds...)
}

func searchPredicate(query string, opts SearchOptions) *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.ContainsFold("summary", query)}
	if opts.EntityType != "" {
		preds = append(preds, entsql.EQ("indexed_entity_type", opts.EntityType))
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", formatTime(*opts.Since)))
	}
	if len(opts.Categories) > 0 {
		preds = append(preds, entsql.In("category", stringArgs(opts.Categories)...))
	}
	return entsql.And(preds...)
}

func (s *SQLStore) selectEntries(ctx context.Context, sel *entsql.Selector) ([]types.ActivityEntry, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	var entries []types.ActivityEntry
	for rows.Next() {
		var (
			e                   types.ActivityEntry
			occurredAt, refsStr string
			payload             *string
		)
		err := rows.Scan(
			&e.EventID, &e.EventType, &occurredAt, &e.IndexedEntityType, &e.IndexedEntityID,
			&e.EntityRole, &refsStr, &e.Summary, &e.Category, &e.Weight, &e.Polarity, &payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		if e.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, fmt.Errorf("parsing occurred_at %q: %w", occurredAt, err)
		}
		if refsStr != "" {
			_ = json.Unmarshal([]byte(refsStr), &e.SourceRefs)
		}
		if payload != nil {
			e.Payload = json.RawMessage(*payload)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) count(ctx context.Context, where *entsql.Predicate) (int, error) {
	query, args := s.builder.Select(entsql.Count("*")).
		From(entsql.Table("activity_entries")).
		Where(where).
		Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("counting activity entries: %w", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func stringArgs(vs []string) []any {
	args := make([]any, len(vs))
	for i, v := range vs {
		args[i] = v
	}
	return args
}
