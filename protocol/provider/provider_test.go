package provider

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/merkletree"
	"github.com/smtprovider/smt-provider/protocol"
	"github.com/smtprovider/smt-provider/storage/kv"
	"github.com/smtprovider/smt-provider/storage/kv/leveldbkv"
	"github.com/smtprovider/smt-provider/storage/kv/treekv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	value1 = crypto.DigestHash([]byte("value1"))
	value2 = crypto.DigestHash([]byte("value2"))
	value3 = crypto.DigestHash([]byte("value3"))
)

type countingObserver struct {
	mu      sync.Mutex
	loaded  int
	updated int
}

func (o *countingObserver) TreeLoaded(string, int) {
	o.mu.Lock()
	o.loaded++
	o.mu.Unlock()
}

func (o *countingObserver) TreeUpdated(string, int) {
	o.mu.Lock()
	o.updated++
	o.mu.Unlock()
}

func openDB(t *testing.T) kv.DB {
	db, err := leveldbkv.OpenDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func listTrees(p *Provider) ([]string, error) {
	return treekv.ListTrees(p.db)
}

func newTestProvider(t *testing.T, db kv.DB, policies *protocol.Policies) (*Provider, *protocol.MemorySource) {
	p, err := New(db, 2, policies)
	require.NoError(t, err)
	src := protocol.NewMemorySource()
	p.RegisterSource("deposits", src)
	return p, src
}

// expected builds the leaf set a tree holding leaves must have.
func expected(t *testing.T, depth uint32, leaves map[uint64]crypto.Hash) *merkletree.LeafSet {
	ls, err := merkletree.NewLeafSet(depth)
	require.NoError(t, err)
	for k, v := range leaves {
		key, err := merkletree.KeyFromUint64(depth, k)
		require.NoError(t, err)
		require.NoError(t, ls.Insert(key, v))
	}
	return ls
}

func expectedRoot(t *testing.T, ls *merkletree.LeafSet) crypto.Hash {
	if ls.Len() == 0 {
		return crypto.EmptyHash
	}
	root, err := merkletree.ComputeRoot(ls)
	require.NoError(t, err)
	return root
}

func expectedProof(t *testing.T, ls *merkletree.LeafSet, k uint64) string {
	key, err := merkletree.KeyFromUint64(ls.Depth(), k)
	require.NoError(t, err)
	proof, err := merkletree.ProveKey(ls, key)
	require.NoError(t, err)
	return proof.Hex()
}

func addTree(t *testing.T, p *Provider, depth uint32, leaves protocol.Leaves) string {
	id, err := p.AddTreeManually(&protocol.AddTreeManuallyParams{Depth: depth, Leaves: leaves})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "0x"))
	require.Len(t, id, 66)
	return id
}

func root(t *testing.T, p *Provider, id string) crypto.Hash {
	r, err := p.GetRoot(context.Background(), &protocol.IndexParams{Index: id})
	require.NoError(t, err)
	return r
}

func TestAddTreeManually(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	ctx := context.Background()
	id := addTree(t, p, 64, protocol.Leaves{"0": value1.Hex(), "0x1": value2.Hex()})

	want := expected(t, 64, map[uint64]crypto.Hash{0: value1, 1: value2})
	assert.Equal(t, expectedRoot(t, want), root(t, p, id))

	proof, err := p.GetProofByKey(ctx, &protocol.ProofByKeyParams{Index: id, Key: "0"})
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000001"+strings.TrimPrefix(value2.Hex(), "0x"), proof)

	res, err := p.VerifyProof(&protocol.VerifyProofParams{
		Depth: 64,
		Key:   "0",
		Value: value1.Hex(),
		Proof: proof,
		Root:  root(t, p, id).Hex(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Valid)
	assert.True(t, *res.Valid)

	// the same params create a different tree
	other := addTree(t, p, 64, protocol.Leaves{"0": value1.Hex(), "0x1": value2.Hex()})
	assert.NotEqual(t, id, other)
}

func TestAddEmptyTree(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	id := addTree(t, p, 16, nil)
	assert.Equal(t, crypto.EmptyHash, root(t, p, id))

	proof, err := p.GetProofByKey(context.Background(), &protocol.ProofByKeyParams{Index: id, Key: "9"})
	require.NoError(t, err)
	assert.Equal(t, "0x0000", proof)
}

func TestAddTreeBadParams(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	tests := []struct {
		name   string
		params *protocol.AddTreeManuallyParams
		want   error
	}{
		{"depth too small", &protocol.AddTreeManuallyParams{Depth: 7}, merkletree.ErrInvalidDepth},
		{"depth too large", &protocol.AddTreeManuallyParams{Depth: 257}, merkletree.ErrInvalidDepth},
		{"key too large", &protocol.AddTreeManuallyParams{Depth: 8,
			Leaves: protocol.Leaves{"256": value1.Hex()}}, merkletree.ErrInvalidKey},
		{"bad value", &protocol.AddTreeManuallyParams{Depth: 8,
			Leaves: protocol.Leaves{"1": "0x01"}}, merkletree.ErrInvalidValue},
	}
	for _, tt := range tests {
		_, err := p.AddTreeManually(tt.params)
		assert.True(t, errors.Is(err, tt.want), "%s: %v", tt.name, err)
		assert.Equal(t, protocol.ErrorInvalidParams, protocol.CodeOf(err), tt.name)
	}
}

func TestUnknownTree(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	ctx := context.Background()

	_, err := p.GetRoot(ctx, &protocol.IndexParams{Index: "0xdead"})
	require.True(t, errors.Is(err, protocol.ErrUnknownTree))
	assert.Contains(t, err.Error(), "There is no tree with such 0xdead index.")

	_, err = p.GetProofByKey(ctx, &protocol.ProofByKeyParams{Index: "0xdead", Key: "1"})
	assert.True(t, errors.Is(err, protocol.ErrUnknownTree))
	err = p.UpdateTreeManually(&protocol.UpdateTreeManuallyParams{Index: "0xdead"})
	assert.True(t, errors.Is(err, protocol.ErrUnknownTree))
}

func TestUpdateTreeManually(t *testing.T) {
	db := openDB(t)
	p, _ := newTestProvider(t, db, nil)
	id := addTree(t, p, 32, protocol.Leaves{"1": value1.Hex(), "2": value2.Hex()})

	zero := crypto.EmptyHash.Hex()
	err := p.UpdateTreeManually(&protocol.UpdateTreeManuallyParams{
		Index:  id,
		Leaves: protocol.Leaves{"1": zero, "3": value3.Hex(), "2": value1.Hex()},
	})
	require.NoError(t, err)

	want := expected(t, 32, map[uint64]crypto.Hash{2: value1, 3: value3})
	assert.Equal(t, expectedRoot(t, want), root(t, p, id))

	// a bad update leaves the tree unchanged
	err = p.UpdateTreeManually(&protocol.UpdateTreeManuallyParams{
		Index:  id,
		Leaves: protocol.Leaves{"4": value1.Hex(), "x": value2.Hex()},
	})
	require.True(t, errors.Is(err, merkletree.ErrInvalidKey))
	assert.Equal(t, expectedRoot(t, want), root(t, p, id))

	// the update survives a restart
	reopened, _ := newTestProvider(t, db, nil)
	assert.Equal(t, expectedRoot(t, want), root(t, reopened, id))
}

func TestAddTreeRejectsEmptyValue(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	_, err := p.AddTreeManually(&protocol.AddTreeManuallyParams{Depth: 8,
		Leaves: protocol.Leaves{"1": value1.Hex(), "2": crypto.EmptyHash.Hex()}})
	require.True(t, errors.Is(err, merkletree.ErrInvalidValue))
	assert.Equal(t, protocol.ErrorInvalidParams, protocol.CodeOf(err))

	trees, err := treekv.ListTrees(p.db)
	require.NoError(t, err)
	assert.Empty(t, trees)
}

func TestGetProofByKeys(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	leaves := map[uint64]crypto.Hash{}
	wire := protocol.Leaves{}
	for i := uint64(0); i < 40; i++ {
		v := crypto.DigestHash([]byte(strconv.FormatUint(i, 10)))
		leaves[i*13] = v
		wire[strconv.FormatUint(i*13, 10)] = v.Hex()
	}
	id := addTree(t, p, 20, wire)
	ls := expected(t, 20, leaves)

	keys := []uint64{0, 13, 14, 507, 1 << 19, 1<<20 - 1}
	var params protocol.ProofByKeysParams
	params.Index = id
	for _, k := range keys {
		params.Keys = append(params.Keys, strconv.FormatUint(k, 10))
	}
	proofs, err := p.GetProofByKeys(context.Background(), &params)
	require.NoError(t, err)
	require.Len(t, proofs, len(keys))
	for i, k := range keys {
		assert.Equal(t, expectedProof(t, ls, k), proofs[i], "key %d", k)
	}

	params.Keys = append(params.Keys, "1048576")
	_, err = p.GetProofByKeys(context.Background(), &params)
	assert.True(t, errors.Is(err, merkletree.ErrKeyNotProvable))

	params.Keys = nil
	_, err = p.GetProofByKeys(context.Background(), &params)
	assert.True(t, errors.Is(err, protocol.ErrMalformedParams))
}

func TestProofWithCondition(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	ctx := context.Background()
	id := addTree(t, p, 16, protocol.Leaves{"5": value1.Hex(), "6": value2.Hex()})
	before := root(t, p, id)

	condition := protocol.Leaves{"6": crypto.EmptyHash.Hex(), "7": value3.Hex()}
	proof, err := p.GetProofByKeyWithCondition(ctx, &protocol.ProofByKeyWithConditionParams{
		Index: id, Key: "5", Condition: condition,
	})
	require.NoError(t, err)
	conditioned := expected(t, 16, map[uint64]crypto.Hash{5: value1, 7: value3})
	assert.Equal(t, expectedProof(t, conditioned, 5), proof)

	proofs, err := p.GetProofByKeysWithCondition(ctx, &protocol.ProofByKeysWithConditionParams{
		Index: id, Keys: []string{"6", "7"}, Condition: condition,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{expectedProof(t, conditioned, 6), expectedProof(t, conditioned, 7)}, proofs)

	// the stored tree is unchanged
	assert.Equal(t, before, root(t, p, id))
	plain, err := p.GetProofByKey(ctx, &protocol.ProofByKeyParams{Index: id, Key: "5"})
	require.NoError(t, err)
	assert.Equal(t, expectedProof(t, expected(t, 16, map[uint64]crypto.Hash{5: value1, 6: value2}), 5), plain)
}

func TestPolicies(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), &protocol.Policies{MaxKeysPerRequest: 2, MaxLeavesPerTree: 2})
	ctx := context.Background()

	_, err := p.AddTreeManually(&protocol.AddTreeManuallyParams{Depth: 8,
		Leaves: protocol.Leaves{"1": value1.Hex(), "2": value2.Hex(), "3": value3.Hex()}})
	assert.True(t, errors.Is(err, protocol.ErrTooManyLeaves))

	id := addTree(t, p, 8, protocol.Leaves{"1": value1.Hex(), "2": value2.Hex()})
	before := root(t, p, id)
	err = p.UpdateTreeManually(&protocol.UpdateTreeManuallyParams{Index: id,
		Leaves: protocol.Leaves{"3": value3.Hex()}})
	assert.True(t, errors.Is(err, protocol.ErrTooManyLeaves))
	assert.Equal(t, before, root(t, p, id))

	// replacing a leaf keeps the count
	require.NoError(t, p.UpdateTreeManually(&protocol.UpdateTreeManuallyParams{Index: id,
		Leaves: protocol.Leaves{"1": crypto.EmptyHash.Hex(), "3": value3.Hex()}}))

	_, err = p.GetProofByKeys(ctx, &protocol.ProofByKeysParams{Index: id, Keys: []string{"1", "2", "3"}})
	assert.True(t, errors.Is(err, protocol.ErrTooManyKeys))

	p.SetPolicies(&protocol.Policies{})
	proofs, err := p.GetProofByKeys(ctx, &protocol.ProofByKeysParams{Index: id, Keys: []string{"1", "2", "3"}})
	require.NoError(t, err)
	assert.Len(t, proofs, 3)
}

func TestSourceTree(t *testing.T) {
	p, src := newTestProvider(t, openDB(t), nil)
	obs := new(countingObserver)
	p.SetObserver(obs)
	ctx := context.Background()

	src.Write([]byte{1}, value1)
	src.Write([]byte{2}, value2)
	id, err := p.AddTreeFromSource(ctx, &protocol.AddTreeFromSourceParams{Depth: 8, Source: "deposits"})
	require.NoError(t, err)
	assert.Equal(t, expectedRoot(t, expected(t, 8, map[uint64]crypto.Hash{1: value1, 2: value2})), root(t, p, id))

	// later writes are applied before reads
	src.Write([]byte{1}, crypto.EmptyHash)
	src.Write([]byte{3}, value3)
	want := expected(t, 8, map[uint64]crypto.Hash{2: value2, 3: value3})
	assert.Equal(t, expectedRoot(t, want), root(t, p, id))
	proof, err := p.GetProofByKey(ctx, &protocol.ProofByKeyParams{Index: id, Key: "3"})
	require.NoError(t, err)
	assert.Equal(t, expectedProof(t, want, 3), proof)
	assert.Equal(t, 2, obs.updated)

	err = p.UpdateTreeManually(&protocol.UpdateTreeManuallyParams{Index: id,
		Leaves: protocol.Leaves{"4": value1.Hex()}})
	assert.True(t, errors.Is(err, protocol.ErrSourceTree))

	// the log loses its last two writes and gains one at the same marker
	src.Truncate(2)
	src.Write([]byte{4}, value3)
	src.Write([]byte{5}, value3)
	stale := root(t, p, id)
	assert.NotEqual(t, expectedRoot(t, expected(t, 8,
		map[uint64]crypto.Hash{1: value1, 2: value2, 4: value3, 5: value3})), stale)

	require.NoError(t, p.ExtraUpdateTreeFromSource(ctx, &protocol.IndexParams{Index: id}))
	assert.Equal(t, expectedRoot(t, expected(t, 8,
		map[uint64]crypto.Hash{1: value1, 2: value2, 4: value3, 5: value3})), root(t, p, id))
}

func TestSourceTreeErrors(t *testing.T) {
	p, src := newTestProvider(t, openDB(t), nil)
	ctx := context.Background()

	_, err := p.AddTreeFromSource(ctx, &protocol.AddTreeFromSourceParams{Depth: 8, Source: "withdrawals"})
	assert.True(t, errors.Is(err, protocol.ErrUnknownSource))

	// a write which does not fit the tree fails the creation
	src.Write([]byte{1, 0}, value1)
	_, err = p.AddTreeFromSource(ctx, &protocol.AddTreeFromSourceParams{Depth: 8, Source: "deposits"})
	assert.True(t, errors.Is(err, merkletree.ErrInvalidKey))
	ids, err := listTrees(p)
	require.NoError(t, err)
	assert.Empty(t, ids)

	id := addTree(t, p, 8, nil)
	err = p.ExtraUpdateTreeFromSource(ctx, &protocol.IndexParams{Index: id})
	assert.True(t, errors.Is(err, protocol.ErrManualTree))
}

func TestEvictedTreesReload(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	obs := new(countingObserver)
	p.SetObserver(obs)

	var ids []string
	var roots []crypto.Hash
	for i := 0; i < 4; i++ {
		id := addTree(t, p, 8, protocol.Leaves{strconv.Itoa(i): value1.Hex()})
		ids = append(ids, id)
		roots = append(roots, expectedRoot(t, expected(t, 8, map[uint64]crypto.Hash{uint64(i): value1})))
	}
	// the cache holds two trees, so the first two were evicted
	for i, id := range ids {
		assert.Equal(t, roots[i], root(t, p, id))
	}
	assert.GreaterOrEqual(t, obs.loaded, 2)
}

func TestVerifyProof(t *testing.T) {
	p, _ := newTestProvider(t, openDB(t), nil)
	ls := expected(t, 8, map[uint64]crypto.Hash{1: value1, 200: value2})
	proof := expectedProof(t, ls, 1)

	res, err := p.VerifyProof(&protocol.VerifyProofParams{Depth: 8, Key: "1", Value: value1.Hex(), Proof: proof})
	require.NoError(t, err)
	assert.Equal(t, expectedRoot(t, ls), res.Root)
	assert.Nil(t, res.Valid)

	res, err = p.VerifyProof(&protocol.VerifyProofParams{Depth: 8, Key: "1", Value: value2.Hex(),
		Proof: proof, Root: expectedRoot(t, ls).Hex()})
	require.NoError(t, err)
	assert.False(t, *res.Valid)

	_, err = p.VerifyProof(&protocol.VerifyProofParams{Depth: 8, Key: "1", Value: value1.Hex(), Proof: proof + "00"})
	assert.True(t, errors.Is(err, merkletree.ErrMalformedProof))
}

func TestConcurrentRequests(t *testing.T) {
	p, src := newTestProvider(t, openDB(t), nil)
	ctx := context.Background()
	manual := addTree(t, p, 16, protocol.Leaves{"1": value1.Hex()})
	fed, err := p.AddTreeFromSource(ctx, &protocol.AddTreeFromSourceParams{Depth: 16, Source: "deposits"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := strconv.Itoa(i + 2)
			src.Write([]byte{byte(i + 2)}, value2)
			assert.NoError(t, p.UpdateTreeManually(&protocol.UpdateTreeManuallyParams{Index: manual,
				Leaves: protocol.Leaves{k: value2.Hex()}}))
			_, err := p.GetProofByKeys(ctx, &protocol.ProofByKeysParams{Index: manual, Keys: []string{"1", k}})
			assert.NoError(t, err)
			_, err = p.GetProofByKey(ctx, &protocol.ProofByKeyParams{Index: fed, Key: k})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	leaves := map[uint64]crypto.Hash{1: value1}
	fedLeaves := map[uint64]crypto.Hash{}
	for i := 0; i < 16; i++ {
		leaves[uint64(i+2)] = value2
		fedLeaves[uint64(i+2)] = value2
	}
	assert.Equal(t, expectedRoot(t, expected(t, 16, leaves)), root(t, p, manual))
	assert.Equal(t, expectedRoot(t, expected(t, 16, fedLeaves)), root(t, p, fed))
}
