// Copyright 2014-2015 The Coname Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package leveldbkv implements kv.DB on goleveldb. It is the default
// storage engine of the proof server.
package leveldbkv

import (
	"errors"
	"fmt"

	"github.com/smtprovider/smt-provider/storage/kv"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// every write is synced before it returns
var syncWrites = &opt.WriteOptions{Sync: true}

type leveldbkv struct {
	db *leveldb.DB
}

// OpenDB opens the database at path, creating it if needed.
func OpenDB(path string) (kv.DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		// values are mostly hashes
		Compression: opt.NoCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("leveldbkv: cannot open %s: %w", path, err)
	}
	return Wrap(db), nil
}

// Wrap uses an open leveldb.DB as a kv.DB.
func Wrap(db *leveldb.DB) kv.DB {
	return &leveldbkv{db: db}
}

func (l *leveldbkv) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %x", kv.ErrNotFound, key)
	}
	return value, err
}

func (l *leveldbkv) Put(key, value []byte) error {
	return l.db.Put(key, value, syncWrites)
}

func (l *leveldbkv) Delete(key []byte) error {
	return l.db.Delete(key, syncWrites)
}

func (l *leveldbkv) NewBatch() kv.Batch {
	return new(leveldb.Batch)
}

func (l *leveldbkv) Write(b kv.Batch) error {
	wb, ok := b.(*leveldb.Batch)
	if !ok {
		return fmt.Errorf("leveldbkv: cannot write a %T", b)
	}
	return l.db.Write(wb, syncWrites)
}

func (l *leveldbkv) NewIterator(rg *kv.Range) kv.Iterator {
	var slice *util.Range
	if rg != nil {
		slice = &util.Range{Start: rg.Start, Limit: rg.Limit}
	}
	return l.db.NewIterator(slice, nil)
}

func (l *leveldbkv) Close() error {
	return l.db.Close()
}
