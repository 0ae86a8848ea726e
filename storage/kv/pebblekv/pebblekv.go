// Package pebblekv implements the kv interface using pebble.
package pebblekv

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/smtprovider/smt-provider/storage/kv"
)

type pebblekv struct {
	db *pebble.DB
}

// OpenDB opens (or creates) the pebble database at path.
func OpenDB(path string) (kv.DB, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebblekv: cannot open %s: %w", path, err)
	}
	return Wrap(db), nil
}

// Wrap uses a pebble.DB as a kv.DB. All writes are synced.
func Wrap(db *pebble.DB) kv.DB {
	return &pebblekv{db: db}
}

// Get returns a copy of the stored value, since pebble's buffer is
// only valid until the closer is closed.
func (p *pebblekv) Get(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %x", kv.ErrNotFound, key)
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte{}, val...), nil
}

func (p *pebblekv) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *pebblekv) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

// A batch is written once; Write hands the underlying pebble batch
// back to pebble and later writes of it fail.
type batch struct {
	b *pebble.Batch
}

func (b *batch) Put(key, value []byte) {
	if b.b != nil {
		// Set on a batch only fails once it is committed or closed.
		_ = b.b.Set(key, value, nil)
	}
}

func (b *batch) Delete(key []byte) {
	if b.b != nil {
		_ = b.b.Delete(key, nil)
	}
}

func (p *pebblekv) NewBatch() kv.Batch {
	return &batch{p.db.NewBatch()}
}

// ErrBatchWritten is returned when a batch is written twice.
var ErrBatchWritten = errors.New("[pebblekv] Batch already written")

func (p *pebblekv) Write(b kv.Batch) error {
	wb, ok := b.(*batch)
	if !ok {
		return fmt.Errorf("pebblekv.Write: expected a pebblekv batch, got %T", b)
	}
	if wb.b == nil {
		return ErrBatchWritten
	}
	pb := wb.b
	wb.b = nil
	defer pb.Close()
	return pb.Commit(pebble.Sync)
}

type iterator struct {
	*pebble.Iterator
	err error
}

func (it *iterator) First() bool {
	return it.Iterator != nil && it.Iterator.First()
}

func (it *iterator) Next() bool {
	return it.Iterator != nil && it.Iterator.Next()
}

func (it *iterator) Key() []byte {
	return it.Iterator.Key()
}

func (it *iterator) Value() []byte {
	return it.Iterator.Value()
}

// Release closes the underlying iterator. Error remains valid
// afterwards.
func (it *iterator) Release() {
	if it.Iterator == nil {
		return
	}
	if err := it.Iterator.Close(); err != nil && it.err == nil {
		it.err = err
	}
	it.Iterator = nil
}

func (it *iterator) Error() error {
	if it.err != nil || it.Iterator == nil {
		return it.err
	}
	return it.Iterator.Error()
}

func (p *pebblekv) NewIterator(rg *kv.Range) kv.Iterator {
	opts := &pebble.IterOptions{}
	if rg != nil {
		opts.LowerBound = rg.Start
		opts.UpperBound = rg.Limit
	}
	it, err := p.db.NewIter(opts)
	if err != nil {
		return &iterator{err: err}
	}
	return &iterator{Iterator: it}
}

func (p *pebblekv) Close() error {
	return p.db.Close()
}
