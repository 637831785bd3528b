package storage

import "context"

// Update describes the new value of a single key. Value is the raw JSON of
// the key after the change.
type Update struct {
	Key   []byte
	Value []byte
}

// Store holds a JSON document of session state keyed by gjson paths.
type Store interface {
	Set(ctx context.Context, key []byte, value interface{}) error
	Get(ctx context.Context, key []byte) ([]byte, error)

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
