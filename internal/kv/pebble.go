package kv

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// Pebble implements Store using PebbleDB. This is the default durable
// backend.
type Pebble struct {
	db *pebble.DB
}

func NewPebble(dir string) (*Pebble, error) {
	opts := &pebble.Options{
		// Cart values are tiny and writes are rare; keep the defaults modest
		// and the WAL on for durability across restarts.
		MemTableSize:          64 << 20,
		L0CompactionThreshold: 4,
		DisableWAL:            false,
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &Pebble{db: d}, nil
}

func (p *Pebble) Close() error { return p.db.Close() }

func (p *Pebble) Get(key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get: %w", err)
	}
	out := append([]byte(nil), v...)
	if err := closer.Close(); err != nil {
		return nil, false, fmt.Errorf("pebble get close: %w", err)
	}
	return out, true, nil
}

func (p *Pebble) Set(key string, val []byte) error {
	// Sync writes: a cart mutation must survive an immediate crash.
	if err := p.db.Set([]byte(key), val, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (p *Pebble) Delete(key string) error {
	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}
