// Package poolstore persists pool records, asset registrations and token
// accounts in a kvdb backend, with an LRU cache in front of pool reads.
package poolstore

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/poollabs/goamm/internal/core/ident"
	"github.com/poollabs/goamm/internal/core/pool"
	"github.com/poollabs/goamm/internal/core/token"
	"github.com/poollabs/goamm/internal/storage/kvdb"
)

// Key prefixes. Pool keys are p/<config id>, asset keys s/<asset id>,
// account keys c/<asset id><holder id>.
var (
	prefixPool    = []byte("p/")
	prefixAsset   = []byte("s/")
	prefixAccount = []byte("c/")
)

// ErrNotFound is returned when the requested record is absent.
var ErrNotFound = errors.New("poolstore: record not found")

const defaultCacheSize = 256

// Store reads and writes engine state through a kvdb backend.
type Store struct {
	db    kvdb.DB
	cache *lru.Cache[ident.Identity, *pool.Record]
}

// New creates a store over db. cacheSize bounds the pool record cache;
// zero or negative selects the default.
func New(db kvdb.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[ident.Identity, *pool.Record](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

func poolKey(id ident.Identity) []byte {
	return append(append([]byte{}, prefixPool...), id[:]...)
}

func assetKey(id ident.Identity) []byte {
	return append(append([]byte{}, prefixAsset...), id[:]...)
}

func accountKey(assetID, holder ident.Identity) []byte {
	key := append(append([]byte{}, prefixAccount...), assetID[:]...)
	return append(key, holder[:]...)
}

// SavePool writes one pool record and refreshes the cache.
func (s *Store) SavePool(ctx context.Context, rec *pool.Record) error {
	if err := s.db.Write(ctx, poolKey(rec.Config.ID), pool.EncodeRecord(rec)); err != nil {
		return err
	}
	s.cache.Add(rec.Config.ID, rec)
	return nil
}

// Pool loads one pool record, from cache when possible.
func (s *Store) Pool(ctx context.Context, id ident.Identity) (*pool.Record, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}
	data, err := s.db.Read(ctx, poolKey(id))
	if err != nil {
		if errors.Is(err, kvdb.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: pool %s", ErrNotFound, id)
		}
		return nil, err
	}
	rec, err := pool.DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, rec)
	return rec, nil
}

// Pools loads every persisted pool record.
func (s *Store) Pools(ctx context.Context) ([]*pool.Record, error) {
	iter, err := s.db.Iterator(ctx, prefixPool, kvdb.PrefixEnd(prefixPool))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []*pool.Record
	for iter.Next() {
		rec, err := pool.DecodeRecord(iter.Value())
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveLedger writes every asset and account of the ledger in one batch.
func (s *Store) SaveLedger(ctx context.Context, l *token.Ledger) error {
	var ops []kvdb.BatchOperation
	for _, rec := range l.Assets() {
		ops = append(ops, kvdb.BatchOperation{
			Type:  kvdb.BatchPut,
			Key:   assetKey(rec.Descriptor.Identity),
			Value: encodeAssetRecord(rec),
		})
	}
	for _, acct := range l.Accounts() {
		ops = append(ops, kvdb.BatchOperation{
			Type:  kvdb.BatchPut,
			Key:   accountKey(acct.Asset, acct.Holder),
			Value: encodeAccountValue(acct),
		})
	}
	return s.db.Batch(ctx, ops)
}

// LoadLedger rebuilds a token ledger from persisted assets and accounts.
func (s *Store) LoadLedger(ctx context.Context) (*token.Ledger, error) {
	l := token.NewLedger()

	iter, err := s.db.Iterator(ctx, prefixAsset, kvdb.PrefixEnd(prefixAsset))
	if err != nil {
		return nil, err
	}
	for iter.Next() {
		rec, err := decodeAssetRecord(iter.Value())
		if err != nil {
			iter.Close()
			return nil, err
		}
		if err := l.RestoreAsset(rec.Descriptor, rec.Supply); err != nil {
			iter.Close()
			return nil, err
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return nil, err
	}
	iter.Close()

	iter, err = s.db.Iterator(ctx, prefixAccount, kvdb.PrefixEnd(prefixAccount))
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefixAccount)+64 {
			return nil, fmt.Errorf("poolstore: malformed account key of %d bytes", len(key))
		}
		var assetID, holder ident.Identity
		copy(assetID[:], key[len(prefixAccount):len(prefixAccount)+32])
		copy(holder[:], key[len(prefixAccount)+32:])

		acct, err := decodeAccountValue(assetID, holder, iter.Value())
		if err != nil {
			return nil, err
		}
		if err := l.RestoreAccount(acct); err != nil {
			return nil, err
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadEngine rebuilds a pool engine from persisted state: the ledger first,
// then every pool record.
func (s *Store) LoadEngine(ctx context.Context) (*pool.Engine, error) {
	ledger, err := s.LoadLedger(ctx)
	if err != nil {
		return nil, err
	}
	engine := pool.NewEngine(ledger)

	records, err := s.Pools(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := engine.Restore(rec); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// SaveEngine persists the engine's ledger and every pool record.
func (s *Store) SaveEngine(ctx context.Context, engine *pool.Engine) error {
	if err := s.SaveLedger(ctx, engine.Ledger()); err != nil {
		return err
	}
	for _, rec := range engine.Pools() {
		if err := s.SavePool(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
