package live

import (
	"encoding/json"
	"slices"

	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/signals"
	"github.com/matthewbaird/propmanage/internal/types"
)

// ClientMessage is a frame sent by a dashboard: "subscribe" carries a
// Filter in Data, "ping" carries nothing.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Filter selects which events a connection receives. The zero Filter
// matches every event.
type Filter struct {
	EntityType string   `json:"entity_type,omitempty"`
	EntityID   string   `json:"entity_id,omitempty"`
	Categories []string `json:"categories,omitempty"`
	MinWeight  string   `json:"min_weight,omitempty"`
}

// Matches reports whether evt passes the filter.
func (f Filter) Matches(evt event.DomainEvent) bool {
	switch {
	case f.EntityType != "" && !slices.ContainsFunc(evt.AffectedEntities, f.touches):
		return false
	case len(f.Categories) > 0 && !slices.Contains(f.Categories, evt.Category):
		return false
	case f.MinWeight != "" && !signals.IsAtLeastWeight(evt.Weight, f.MinWeight):
		return false
	}
	return true
}

func (f Filter) touches(ref types.SourceRef) bool {
	return ref.EntityType == f.EntityType && (f.EntityID == "" || ref.EntityID == f.EntityID)
}

// ServerMessage is a frame sent to a dashboard. Replies to a client frame
// echo its ID as RequestID.
type ServerMessage struct {
	Type      string `json:"type"` // session, subscribed, event, error or pong
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// SessionData carries the connection's session id.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
