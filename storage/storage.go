// Package storage selects the key-value engine which persists trees.
package storage

import (
	"fmt"

	"github.com/smtprovider/smt-provider/storage/kv"
	"github.com/smtprovider/smt-provider/storage/kv/leveldbkv"
	"github.com/smtprovider/smt-provider/storage/kv/pebblekv"
)

// Engine names accepted by Open.
const (
	LevelDB = "leveldb"
	Pebble  = "pebble"
)

// A Config describes where and how trees are persisted.
type Config struct {
	// Engine is either "leveldb" (the default) or "pebble".
	Engine string `toml:"engine"`
	// Path is the directory of the database.
	Path string `toml:"path"`
}

// Open opens the database described by conf.
func Open(conf *Config) (kv.DB, error) {
	switch conf.Engine {
	case LevelDB, "":
		return leveldbkv.OpenDB(conf.Path)
	case Pebble:
		return pebblekv.OpenDB(conf.Path)
	default:
		return nil, fmt.Errorf("Unknown storage engine %q", conf.Engine)
	}
}
