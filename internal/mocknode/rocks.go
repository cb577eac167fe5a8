package mocknode

import (
	"github.com/tecbot/gorocksdb"
)

// RocksStore persists the ledger on disk so a node can be restarted
// without refunding its accounts.
type RocksStore struct {
	db *gorocksdb.DB
	ro *gorocksdb.ReadOptions
	wo *gorocksdb.WriteOptions
}

func OpenRocks(path string) (*RocksStore, error) {
	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		return nil, err
	}

	return &RocksStore{
		db: db,
		ro: gorocksdb.NewDefaultReadOptions(),
		wo: gorocksdb.NewDefaultWriteOptions(),
	}, nil
}

func (s *RocksStore) Close() {
	if s.ro != nil {
		s.ro.Destroy()
	}
	if s.wo != nil {
		s.wo.Destroy()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *RocksStore) Get(key []byte) ([]byte, bool, error) {
	val, err := s.db.Get(s.ro, key)
	if err != nil {
		return nil, false, err
	}
	defer val.Free()

	if !val.Exists() {
		return nil, false, nil
	}
	// val.Data() is RocksDB-managed memory, invalid after Free.
	b := append([]byte(nil), val.Data()...)
	return b, true, nil
}

func (s *RocksStore) Put(key, value []byte) error {
	return s.db.Put(s.wo, key, value)
}

func (s *RocksStore) WriteBatch(kvs []KV) error {
	wb := gorocksdb.NewWriteBatch()
	defer wb.Destroy()

	for _, kv := range kvs {
		wb.Put(kv.Key, kv.Value)
	}
	return s.db.Write(s.wo, wb)
}
