// Package event defines the domain events the lease lifecycle emits and
// records them into the activity stream.
package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/matthewbaird/propmanage/internal/activity"
	"github.com/matthewbaird/propmanage/internal/types"
)

// ErrNoEntities is returned for an event that references no entity and so
// would leave no trace in the activity stream.
var ErrNoEntities = errors.New("event references no entities")

// Recorder persists a domain event.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher hands a recorded event to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// ActivityRecorder writes one activity entry per entity an event touches.
// Publishers run in order, and only once the write has succeeded.
type ActivityRecorder struct {
	store      activity.Store
	publishers []Publisher
}

func NewActivityRecorder(store activity.Store, publishers ...Publisher) *ActivityRecorder {
	return &ActivityRecorder{store: store, publishers: publishers}
}

// Record implements Recorder.
func (r *ActivityRecorder) Record(ctx context.Context, evt DomainEvent) error {
	entries := evt.Entries()
	if len(entries) == 0 {
		return fmt.Errorf("recording %s: %w", evt.EventType, ErrNoEntities)
	}
	if err := r.store.WriteEntries(ctx, entries); err != nil {
		return fmt.Errorf("recording %s %s: %w", evt.EventType, evt.ID, err)
	}
	for _, p := range r.publishers {
		p.Publish(ctx, evt)
	}
	return nil
}

// Entries expands the event into the rows of each affected entity's
// activity feed. Every row carries the full reference list so a feed can
// link to the other parties.
func (evt DomainEvent) Entries() []types.ActivityEntry {
	if len(evt.AffectedEntities) == 0 {
		return nil
	}
	base := types.ActivityEntry{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt,
		SourceRefs: evt.AffectedEntities,
		Summary:    evt.Summary,
		Category:   evt.Category,
		Weight:     evt.Weight,
		Polarity:   evt.Polarity,
		Payload:    evt.Payload,
	}
	out := make([]types.ActivityEntry, len(evt.AffectedEntities))
	for i, ref := range evt.AffectedEntities {
		e := base
		e.IndexedEntityType, e.IndexedEntityID, e.EntityRole = ref.EntityType, ref.EntityID, ref.Role
		out[i] = e
	}
	return out
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, DomainEvent) error { return nil }
