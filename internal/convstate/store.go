package convstate

import "context"

// UpdateFunc mutates s in place. exists reports whether s was loaded from the store;
// otherwise s is a fresh zero state. Returning false discards the mutation.
type UpdateFunc func(s *State, exists bool) (changed bool)

// Store persists conversation states. Implementations expire a state once it has not been
// written for their configured TTL.
type Store interface {
	// Get returns the live state for sessionID.
	Get(ctx context.Context, sessionID string) (State, bool, error)

	// Update runs fn as an atomic read-modify-write on one session. A changed state is written
	// back with its expiry pushed out by the TTL. The state fn left behind is returned.
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (State, error)

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Sweep removes expired states and reports how many were dropped.
	Sweep(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
}
