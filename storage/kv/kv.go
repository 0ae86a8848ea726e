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

// Package kv is the storage boundary of the proof server: an ordered
// key-value store which the engine backends (leveldbkv, pebblekv)
// implement and which treekv uses to persist trees.
package kv

import "errors"

// ErrNotFound is returned, possibly wrapped, by DB.Get for a missing
// key. Backends translate their own not-found errors into it.
var ErrNotFound = errors.New("[kv] Not found")

// DB is an ordered key-value store safe for concurrent use. A write
// which returned without error is durable: it survives a restart of
// the process. Write applies all operations of a Batch atomically, so
// callers can replace several records at once.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	Write(Batch) error
	// NewIterator iterates over rg in ascending key order; a nil
	// range covers the whole store.
	NewIterator(rg *Range) Iterator
	Close() error
}

// A Batch collects writes which are applied by DB.Write.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
}

// Iterator walks a range of a DB. First and Next report whether the
// iterator points at an entry. Error stays valid after Release.
type Iterator interface {
	Key() []byte
	Value() []byte
	First() bool
	Next() bool
	Release()
	Error() error
}

// Range covers the keys k with Start <= k < Limit. A nil Limit is
// greater than every key.
type Range struct {
	Start []byte
	Limit []byte
}

// BytesPrefix returns the range of the keys starting with prefix.
func BytesPrefix(prefix []byte) *Range {
	rg := &Range{Start: prefix}
	// the limit is prefix with its last byte below 0xff incremented
	// and the bytes after it dropped
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			rg.Limit = append([]byte{}, prefix[:i+1]...)
			rg.Limit[i]++
			break
		}
	}
	return rg
}
