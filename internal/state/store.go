package state

import "context"

// Store is the key-value persistence the bot survives restarts with:
// client-order-id dedup records, cached trading rules, and the last
// position snapshot per symbol. Get reports presence explicitly so an
// empty value and a missing key stay distinguishable.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
