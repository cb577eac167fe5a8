// Package mocknode is a single-process validator node for exercising
// dispatch races locally: it accepts signed transfers over HTTP,
// confirms them after a configurable latency, and enforces balances so
// conflicting spends resolve to exactly one winner.
package mocknode

import (
	"sync"
)

// KV is one entry of an atomic write batch.
type KV struct {
	Key   []byte
	Value []byte
}

// Store is the node's durable byte store. The ledger composes keys via
// the Key* helpers; the store itself knows nothing about accounts.
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	// WriteBatch applies all entries atomically. A confirmed transfer
	// touches two balances and one tx record in a single batch.
	WriteBatch(kvs []KV) error
	Close()
}

func KeyAccount(pubkey string) []byte { return []byte("acct:" + pubkey) }

func KeyTx(sig string) []byte { return []byte("txrec:" + sig) }

// MemStore keeps everything in a map. Tests and -db=mem runs use it.
type MemStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]byte)}
}

func (s *MemStore) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemStore) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *MemStore) WriteBatch(kvs []KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kv := range kvs {
		s.m[string(kv.Key)] = append([]byte(nil), kv.Value...)
	}
	return nil
}

func (s *MemStore) Close() {}
