package store

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/pkg/db"
	"github.com/eigerco/tollbridge/pkg/db/pebble"
	"github.com/eigerco/tollbridge/pkg/log"
	"github.com/eigerco/tollbridge/pkg/serialization"
	"github.com/eigerco/tollbridge/pkg/serialization/codec"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrStoreClosed = errors.New("bridge store is closed")
	ErrTxnDone     = errors.New("transaction already committed or discarded")
)

const DefaultCacheSize = 4096

// Store persists bridge state in a KV store. Mutations are staged in a Txn
// and written with a single atomic batch.
type Store struct {
	kv         db.KVStore
	serializer *serialization.Serializer
	// completed records never change again, so they are safe to cache
	completed *lru.Cache
	closed    atomic.Bool
}

// New creates a store on top of kv. cacheSize bounds the number of
// completed records kept in memory.
func New(kv db.KVStore, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}
	cborCodec, err := codec.NewCBORCodec()
	if err != nil {
		return nil, err
	}
	return &Store{
		kv:         kv,
		serializer: serialization.NewSerializer(cborCodec),
		completed:  cache,
	}, nil
}

// Serializer returns the codec used for persisted values.
func (s *Store) Serializer() *serialization.Serializer {
	return s.serializer
}

// Begin opens a transaction. Reads see committed state overlaid with the
// transaction's own staged writes.
func (s *Store) Begin() *Txn {
	return &Txn{
		store:  s,
		writes: make(map[string][]byte),
	}
}

// Commit writes every staged change of txn atomically.
func (s *Store) Commit(txn *Txn) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if txn.done {
		return ErrTxnDone
	}
	txn.done = true
	if len(txn.writes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(txn.writes))
	for k := range txn.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := s.kv.NewBatch()
	defer func() {
		if err := batch.Close(); err != nil {
			log.Store.Error().Err(err).Msg("close batch")
		}
	}()
	for _, k := range keys {
		if err := batch.Put([]byte(k), txn.writes[k]); err != nil {
			return fmt.Errorf("stage %s: %w", PrefixToString(k[0]), err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	for k, r := range txn.completed {
		s.completed.Add(k, r)
	}
	log.Store.Debug().Int("writes", len(keys)).Int("events", len(txn.emitted)).Msg("transaction committed")
	return nil
}

// Close closes the store and its underlying KV store.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.completed.Purge()
	return s.kv.Close()
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	value, err := s.kv.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", PrefixToString(key[0]), err)
	}
	return value, true, nil
}

func (s *Store) cachedRecord(key []byte) (state.Record, bool) {
	v, ok := s.completed.Get(string(key))
	if !ok {
		return state.Record{}, false
	}
	return v.(state.Record), true
}
