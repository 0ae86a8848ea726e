// Package kvtest contains a test suite shared by the kv.DB
// implementations.
package kvtest

import (
	"errors"
	"testing"

	"github.com/smtprovider/smt-provider/storage/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Open returns a fresh database and a function which closes it.
type Open func(t *testing.T) (kv.DB, func())

// RunDBTests exercises the kv.DB contract against the databases
// returned by open.
func RunDBTests(t *testing.T, open Open) {
	t.Run("GetPutDelete", func(t *testing.T) {
		db, teardown := open(t)
		defer teardown()

		_, err := db.Get([]byte("missing"))
		require.True(t, errors.Is(err, kv.ErrNotFound))

		require.NoError(t, db.Put([]byte("k"), []byte("v1")))
		got, err := db.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		require.NoError(t, db.Put([]byte("k"), []byte("v2")))
		got, err = db.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)

		require.NoError(t, db.Delete([]byte("k")))
		_, err = db.Get([]byte("k"))
		require.True(t, errors.Is(err, kv.ErrNotFound))
	})

	t.Run("Batch", func(t *testing.T) {
		db, teardown := open(t)
		defer teardown()

		require.NoError(t, db.Put([]byte("gone"), []byte("x")))
		wb := db.NewBatch()
		wb.Put([]byte("a"), []byte("1"))
		wb.Put([]byte("b"), []byte("2"))
		wb.Delete([]byte("gone"))

		_, err := db.Get([]byte("a"))
		require.True(t, errors.Is(err, kv.ErrNotFound), "batch must not be applied before Write")

		require.NoError(t, db.Write(wb))
		for k, v := range map[string]string{"a": "1", "b": "2"} {
			got, err := db.Get([]byte(k))
			require.NoError(t, err)
			assert.Equal(t, []byte(v), got)
		}
		_, err = db.Get([]byte("gone"))
		require.True(t, errors.Is(err, kv.ErrNotFound))
	})

	t.Run("IteratorPrefix", func(t *testing.T) {
		db, teardown := open(t)
		defer teardown()

		for _, k := range []string{"a1", "b1", "b2", "b3", "c1"} {
			require.NoError(t, db.Put([]byte(k), []byte("v"+k)))
		}
		it := db.NewIterator(kv.BytesPrefix([]byte("b")))
		var keys []string
		for ok := it.First(); ok; ok = it.Next() {
			keys = append(keys, string(it.Key()))
			assert.Equal(t, "v"+string(it.Key()), string(it.Value()))
		}
		it.Release()
		require.NoError(t, it.Error())
		assert.Equal(t, []string{"b1", "b2", "b3"}, keys)
	})
}
