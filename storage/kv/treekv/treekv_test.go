package treekv

import (
	"path/filepath"
	"testing"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/merkletree"
	"github.com/smtprovider/smt-provider/storage/kv"
	"github.com/smtprovider/smt-provider/storage/kv/leveldbkv"
	"github.com/smtprovider/smt-provider/storage/kv/pebblekv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDBs(t *testing.T, f func(t *testing.T, db kv.DB)) {
	openers := map[string]func(string) (kv.DB, error){
		"leveldb": leveldbkv.OpenDB,
		"pebble":  pebblekv.OpenDB,
	}
	for name, open := range openers {
		t.Run(name, func(t *testing.T) {
			db, err := open(filepath.Join(t.TempDir(), "db"))
			require.NoError(t, err)
			defer db.Close()
			f(t, db)
		})
	}
}

func testRecord(t *testing.T, depth uint32, n int) *TreeRecord {
	ls, err := merkletree.NewLeafSet(depth)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		key, err := merkletree.KeyFromUint64(depth, uint64(i*7+1))
		require.NoError(t, err)
		require.NoError(t, ls.Insert(key, crypto.DigestHash(key)))
	}
	return &TreeRecord{Source: "deposits", Marker: 42, Leaves: ls}
}

func TestStoreLoadTree(t *testing.T) {
	withDBs(t, func(t *testing.T, db kv.DB) {
		rec := testRecord(t, 12, 20)
		require.NoError(t, StoreTree(db, "0xabc", rec))

		got, err := LoadTree(db, "0xabc")
		require.NoError(t, err)
		assert.Equal(t, "deposits", got.Source)
		assert.Equal(t, uint64(42), got.Marker)
		assert.Equal(t, uint32(12), got.Depth())
		assert.Equal(t, rec.Leaves.Entries(), got.Leaves.Entries())

		expect, err := merkletree.ComputeRoot(rec.Leaves)
		require.NoError(t, err)
		root, err := merkletree.ComputeRoot(got.Leaves)
		require.NoError(t, err)
		assert.Equal(t, expect, root)
	})
}

func TestStoreEmptyTree(t *testing.T) {
	withDBs(t, func(t *testing.T, db kv.DB) {
		rec := testRecord(t, 256, 0)
		rec.Source = ""
		require.NoError(t, StoreTree(db, "empty", rec))
		got, err := LoadTree(db, "empty")
		require.NoError(t, err)
		assert.Equal(t, 0, got.Leaves.Len())
		assert.Equal(t, "", got.Source)
	})
}

func TestLoadTreeNotFound(t *testing.T) {
	withDBs(t, func(t *testing.T, db kv.DB) {
		_, err := LoadTree(db, "missing")
		assert.Equal(t, ErrTreeNotFound, err)

		require.NoError(t, StoreTree(db, "x", testRecord(t, 8, 1)))
		ok, err := HasTree(db, "x")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, DeleteTree(db, "x"))
		ok, err = HasTree(db, "x")
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = LoadTree(db, "x")
		assert.Equal(t, ErrTreeNotFound, err)
	})
}

func TestListTrees(t *testing.T) {
	withDBs(t, func(t *testing.T, db kv.DB) {
		for _, id := range []string{"b", "a", "c"} {
			require.NoError(t, StoreTree(db, id, testRecord(t, 16, 2)))
		}
		require.NoError(t, db.Put([]byte("unrelated"), []byte("x")))
		ids, err := ListTrees(db)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})
}

func TestDeserializeBadBuffer(t *testing.T) {
	buf := testRecord(t, 16, 3).serialize()
	for _, bad := range [][]byte{nil, buf[:10], buf[:len(buf)-1], append(append([]byte{}, buf...), 0)} {
		_, err := deserializeTreeRecord(bad)
		assert.Equal(t, ErrBadRecord, err)
	}
}
