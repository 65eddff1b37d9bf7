package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// SessionStore is the process-wide user -> bounded history mapping.
type SessionStore interface {
	// History returns the stored turns for a user, oldest first. An unknown
	// user yields an empty slice and no error.
	History(ctx context.Context, userID string) ([]*schema.Message, error)

	// Append adds turns and truncates to the store's cap as one atomic step,
	// so concurrent requests for the same user cannot lose each other's turns.
	Append(ctx context.Context, userID string, turns ...*schema.Message) error

	// Clear removes all history for a user.
	Clear(ctx context.Context, userID string) error
}
