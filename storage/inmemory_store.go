package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const UpdateBufferSize = 255

var ErrInvalidSnapshot = errors.New("Snapshot is not a valid JSON object")

type InmemoryStore struct {
	mu     sync.RWMutex
	values []byte

	updateMu    sync.Mutex
	updateChans []chan *Update

	// stop will be closed when Close() is called
	stop     chan struct{}
	stopOnce sync.Once
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values:      []byte("{}"),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
	}
}

func (i *InmemoryStore) Close() error {
	i.stopOnce.Do(func() {
		close(i.stop)

		i.updateMu.Lock()
		defer i.updateMu.Unlock()

		for _, updateChan := range i.updateChans {
			close(updateChan)
		}
		i.updateChans = nil
	})

	return nil
}

// Set writes value at the gjson path key. Listeners that are not keeping up
// miss updates rather than blocking the writer.
func (i *InmemoryStore) Set(ctx context.Context, key []byte, value interface{}) error {
	i.mu.Lock()
	values, err := sjson.SetBytes(i.values, string(key), value)
	if err != nil {
		i.mu.Unlock()
		return err
	}

	i.values = values
	raw := []byte(gjson.GetBytes(values, string(key)).Raw)
	i.mu.Unlock()

	if !i.isRunning() {
		return nil
	}

	i.updateMu.Lock()
	defer i.updateMu.Unlock()

	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- &Update{Key: key, Value: raw}:
		default:
		}
	}

	return nil
}

// Get returns the raw JSON stored at key, or nil when the key is not set.
func (i *InmemoryStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	result := gjson.GetBytes(i.values, string(key))
	if !result.Exists() {
		return nil, nil
	}

	return []byte(result.Raw), nil
}

func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.updateMu.Lock()
	defer i.updateMu.Unlock()

	updateChan := make(chan *Update, UpdateBufferSize)
	if !i.isRunning() {
		close(updateChan)
		return updateChan
	}

	i.updateChans = append(i.updateChans, updateChan)

	return updateChan
}

func (i *InmemoryStore) Restore(values []byte) error {
	if !gjson.ValidBytes(values) || !gjson.ParseBytes(values).IsObject() {
		return ErrInvalidSnapshot
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.values = append([]byte(nil), values...)
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return append([]byte(nil), i.values...), nil
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
