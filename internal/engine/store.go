package engine

import "context"

// Store is the persistent game state the engines read and mutate. Writes are
// serialized by the implementation: Update loads the session's Table, hands a
// private copy to fn and commits it only when fn returns nil.
//
// Reads of a missing session return an error wrapping ErrNoSession.
type Store interface {
	State(ctx context.Context, sessionID string) (GameState, error)
	Players(ctx context.Context, sessionID string) ([]Player, error)
	Votes(ctx context.Context, sessionID string) ([]Vote, error)

	// Create replaces any existing rows for t.State.ID.
	Create(ctx context.Context, t Table) error
	Update(ctx context.Context, sessionID string, fn func(*Table) error) error
	// Reset deletes the session's state, players and votes. Resetting a
	// missing session is not an error.
	Reset(ctx context.Context, sessionID string) error

	// Watch delivers a notification after every committed change to the
	// session. Notifications coalesce; the channel closes when ctx is done.
	Watch(ctx context.Context, sessionID string) <-chan struct{}
}
