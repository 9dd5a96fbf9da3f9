package domain

import "context"

// Store keeps scenario sets alive between requests, one per session, for a
// bounded lifetime. Get returns nil when the session has no live set; Save
// refreshes the set's expiry.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Set, error)
	Save(ctx context.Context, set *Set) error
	Delete(ctx context.Context, sessionID string) error
	// PurgeExpired drops sets past their lifetime and reports how many went.
	// Backends that expire keys on their own return 0.
	PurgeExpired(ctx context.Context) (int, error)
}
