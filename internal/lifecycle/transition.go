package lifecycle

import (
	"slices"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/types"
)

// roomTransitions lists the statuses a landlord may move a room to. Occupied
// is entered and left only through lease creation and termination.
var roomTransitions = map[types.RoomStatus][]types.RoomStatus{
	types.RoomVacant:      {types.RoomMaintenance},
	types.RoomMaintenance: {types.RoomVacant},
	types.RoomOccupied:    {},
}

// validateTransition checks whether moving from current to target is allowed
// by transitions.
func validateTransition[S ~string](transitions map[S][]S, current, target S) error {
	allowed, ok := transitions[current]
	if !ok {
		return billing.InvalidState("unknown current state: %s", current)
	}
	if !slices.Contains(allowed, target) {
		return billing.InvalidState("transition from %q to %q is not allowed", current, target)
	}
	return nil
}
