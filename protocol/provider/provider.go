// This module implements a proof provider: it stores sparse Merkle
// trees under generated ids and answers root and proof requests for
// them. Trees are either updated manually by clients or fed by an
// event source, in which case they are brought up to date before
// every read.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/merkletree"
	"github.com/smtprovider/smt-provider/protocol"
	"github.com/smtprovider/smt-provider/storage/kv"
	"github.com/smtprovider/smt-provider/storage/kv/treekv"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheSize is the number of trees kept in memory when the
// configured cache size is not positive.
const DefaultCacheSize = 128

// An Observer is told when trees are loaded from the database and
// when they change.
type Observer interface {
	TreeLoaded(id string, leaves int)
	TreeUpdated(id string, updates int)
}

type nopObserver struct{}

func (nopObserver) TreeLoaded(string, int)  {}
func (nopObserver) TreeUpdated(string, int) {}

// treeState is the in-memory form of a stored tree.
type treeState struct {
	source string
	marker uint64
	tree   *merkletree.FixedTree
}

// A Provider answers requests for the trees stored in its database.
// It is safe for concurrent use. Requests for the same tree are
// serialized if they may modify it; proofs of an unchanging tree are
// generated concurrently.
type Provider struct {
	db       kv.DB
	cache    *lru.Cache[string, *treeState]
	observer Observer

	mu       sync.Mutex
	locks    map[string]*sync.RWMutex
	sources  map[string]protocol.EventSource
	policies *protocol.Policies

	seq uint64
	now func() time.Time
}

// New constructs a Provider storing its trees in db and keeping up to
// cacheSize of them in memory.
func New(db kv.DB, cacheSize int, policies *protocol.Policies) (*Provider, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *treeState](cacheSize)
	if err != nil {
		return nil, err
	}
	if policies == nil {
		policies = new(protocol.Policies)
	}
	return &Provider{
		db:       db,
		cache:    cache,
		observer: nopObserver{},
		locks:    make(map[string]*sync.RWMutex),
		sources:  make(map[string]protocol.EventSource),
		policies: policies,
		now:      time.Now,
	}, nil
}

// SetObserver installs o. It must be called before the provider is
// used.
func (p *Provider) SetObserver(o Observer) {
	p.observer = o
}

// RegisterSource makes src available to addTreeFromSource under name.
func (p *Provider) RegisterSource(name string, src protocol.EventSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[name] = src
}

// SetPolicies replaces the request limits. It takes effect for the
// requests received afterwards.
func (p *Provider) SetPolicies(policies *protocol.Policies) {
	if policies == nil {
		policies = new(protocol.Policies)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policies = policies
}

// Policies returns the current request limits.
func (p *Provider) Policies() protocol.Policies {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.policies
}

func (p *Provider) source(name string) (protocol.EventSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	src, ok := p.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", protocol.ErrUnknownSource, name)
	}
	return src, nil
}

func unknownTree(id string) error {
	return fmt.Errorf("%w. There is no tree with such %s index.", protocol.ErrUnknownTree, id)
}

// newID derives a fresh tree id from the creation params and time.
func (p *Provider) newID(params interface{}) (string, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	seq := atomic.AddUint64(&p.seq, 1)
	ts := strconv.FormatInt(p.now().UnixMilli(), 10) + "." + strconv.FormatUint(seq, 10)
	return crypto.DigestHash(b, []byte(ts)).Hex(), nil
}

// lockFor returns the lock of the stored tree id.
func (p *Provider) lockFor(id string) (*sync.RWMutex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locks[id]; ok {
		return l, nil
	}
	ok, err := treekv.HasTree(p.db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, unknownTree(id)
	}
	l := new(sync.RWMutex)
	p.locks[id] = l
	return l, nil
}

// state returns the tree id from the cache or the database. The
// caller holds the lock of id.
func (p *Provider) state(id string) (*treeState, error) {
	if st, ok := p.cache.Get(id); ok {
		return st, nil
	}
	rec, err := treekv.LoadTree(p.db, id)
	if errors.Is(err, treekv.ErrTreeNotFound) {
		return nil, unknownTree(id)
	} else if err != nil {
		return nil, err
	}
	st := &treeState{
		source: rec.Source,
		marker: rec.Marker,
		tree:   merkletree.NewFixedTreeFromLeafSet(rec.Leaves),
	}
	p.cache.Add(id, st)
	p.observer.TreeLoaded(id, st.tree.Len())
	return st, nil
}

// persist stores st under id. If this fails the cached copy, which
// the caller may already have modified, is dropped.
func (p *Provider) persist(id string, st *treeState) error {
	err := treekv.StoreTree(p.db, id, &treekv.TreeRecord{
		Source: st.source,
		Marker: st.marker,
		Leaves: st.tree.LeafSet(),
	})
	if err != nil {
		p.cache.Remove(id)
		return err
	}
	p.cache.Add(id, st)
	return nil
}

// update calls fn with the tree id locked for writing.
func (p *Provider) update(id string, fn func(*treeState) error) error {
	l, err := p.lockFor(id)
	if err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()
	st, err := p.state(id)
	if err != nil {
		return err
	}
	return fn(st)
}

// view calls fn with an up to date tree id which fn must not modify.
func (p *Provider) view(ctx context.Context, id string, fn func(*treeState) error) error {
	l, err := p.lockFor(id)
	if err != nil {
		return err
	}
	l.RLock()
	st, err := p.state(id)
	if err != nil {
		l.RUnlock()
		return err
	}
	if st.source == "" {
		defer l.RUnlock()
		return fn(st)
	}
	l.RUnlock()
	return p.update(id, func(st *treeState) error {
		if err := p.sync(ctx, id, st); err != nil {
			return err
		}
		return fn(st)
	})
}

// apply writes entries into st after they were all validated.
func apply(st *treeState, entries []merkletree.Entry) {
	for _, e := range entries {
		// keys were parsed for this depth
		_ = st.tree.Set(e.Key, e.Value)
	}
}

// sync applies the pending updates of the source of st and stores the
// result. The caller holds the write lock of id.
func (p *Provider) sync(ctx context.Context, id string, st *treeState) error {
	src, err := p.source(st.source)
	if err != nil {
		return err
	}
	updates, err := src.Updates(ctx, st.marker)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	depth := st.tree.Depth()
	entries := make([]merkletree.Entry, 0, len(updates))
	for _, u := range updates {
		key, err := merkletree.KeyFromBig(depth, new(big.Int).SetBytes(u.Key))
		if err != nil {
			return fmt.Errorf("source %q at marker %d: %w", st.source, u.Marker, err)
		}
		entries = append(entries, merkletree.Entry{Key: key, Value: u.Value})
	}
	apply(st, entries)
	st.marker = updates[len(updates)-1].Marker
	if err := p.persist(id, st); err != nil {
		return err
	}
	p.observer.TreeUpdated(id, len(entries))
	return nil
}

// AddTreeManually stores a new tree holding the given leaves and
// returns its id. A leaf holding the empty value is rejected: there is
// nothing to delete in a new tree.
func (p *Provider) AddTreeManually(params *protocol.AddTreeManuallyParams) (string, error) {
	if err := merkletree.CheckDepth(params.Depth); err != nil {
		return "", err
	}
	entries, err := params.Leaves.Entries(params.Depth)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Value.IsEmpty() {
			return "", fmt.Errorf("%w: leaf %s holds the empty value", merkletree.ErrInvalidValue, e.Key.Hex())
		}
	}
	tree, _ := merkletree.NewFixedTree(params.Depth)
	st := &treeState{tree: tree}
	apply(st, entries)
	if err := p.Policies().CheckLeaves(tree.Len()); err != nil {
		return "", err
	}
	id, err := p.newID(params)
	if err != nil {
		return "", err
	}
	if err := p.persist(id, st); err != nil {
		return "", err
	}
	p.observer.TreeUpdated(id, len(entries))
	return id, nil
}

// AddTreeFromSource stores a new tree fed by the named source, applies
// the updates the source already holds, and returns the id.
func (p *Provider) AddTreeFromSource(ctx context.Context, params *protocol.AddTreeFromSourceParams) (string, error) {
	if err := merkletree.CheckDepth(params.Depth); err != nil {
		return "", err
	}
	if _, err := p.source(params.Source); err != nil {
		return "", err
	}
	id, err := p.newID(params)
	if err != nil {
		return "", err
	}
	tree, _ := merkletree.NewFixedTree(params.Depth)
	st := &treeState{source: params.Source, tree: tree}
	if err := p.persist(id, st); err != nil {
		return "", err
	}
	err = p.update(id, func(st *treeState) error {
		return p.sync(ctx, id, st)
	})
	if err != nil {
		p.cache.Remove(id)
		if derr := treekv.DeleteTree(p.db, id); derr != nil {
			return "", fmt.Errorf("%v (cleanup: %v)", err, derr)
		}
		return "", err
	}
	return id, nil
}

// UpdateTreeManually merges leaves into the manual tree id. A zero
// value removes its key.
func (p *Provider) UpdateTreeManually(params *protocol.UpdateTreeManuallyParams) error {
	policies := p.Policies()
	return p.update(params.Index, func(st *treeState) error {
		if st.source != "" {
			return fmt.Errorf("%w: %q", protocol.ErrSourceTree, st.source)
		}
		entries, err := params.Leaves.Entries(st.tree.Depth())
		if err != nil {
			return err
		}
		apply(st, entries)
		if err := policies.CheckLeaves(st.tree.Len()); err != nil {
			p.cache.Remove(params.Index)
			return err
		}
		if err := p.persist(params.Index, st); err != nil {
			return err
		}
		p.observer.TreeUpdated(params.Index, len(entries))
		return nil
	})
}

// ExtraUpdateTreeFromSource rebuilds the source tree id from the start
// of its source. It recovers a tree which applied updates its source
// later dropped.
func (p *Provider) ExtraUpdateTreeFromSource(ctx context.Context, params *protocol.IndexParams) error {
	return p.update(params.Index, func(st *treeState) error {
		if st.source == "" {
			return protocol.ErrManualTree
		}
		tree, _ := merkletree.NewFixedTree(st.tree.Depth())
		fresh := &treeState{source: st.source, tree: tree}
		if err := p.persist(params.Index, fresh); err != nil {
			return err
		}
		return p.sync(ctx, params.Index, fresh)
	})
}

// GetRoot returns the root of the tree id.
func (p *Provider) GetRoot(ctx context.Context, params *protocol.IndexParams) (crypto.Hash, error) {
	var root crypto.Hash
	err := p.view(ctx, params.Index, func(st *treeState) error {
		root = st.tree.Root()
		return nil
	})
	return root, err
}

// GetProofByKey returns the encoded proof of a key of the tree id.
func (p *Provider) GetProofByKey(ctx context.Context, params *protocol.ProofByKeyParams) (string, error) {
	proofs, err := p.proofs(ctx, params.Index, []string{params.Key}, nil)
	if err != nil {
		return "", err
	}
	return proofs[0], nil
}

// GetProofByKeys returns the encoded proofs of several keys of the
// tree id, in the order of the keys.
func (p *Provider) GetProofByKeys(ctx context.Context, params *protocol.ProofByKeysParams) ([]string, error) {
	return p.proofs(ctx, params.Index, params.Keys, nil)
}

// GetProofByKeyWithCondition returns the proof of a key in the tree
// obtained by applying the condition to the tree id. The stored tree
// does not change.
func (p *Provider) GetProofByKeyWithCondition(ctx context.Context, params *protocol.ProofByKeyWithConditionParams) (string, error) {
	proofs, err := p.proofs(ctx, params.Index, []string{params.Key}, params.Condition)
	if err != nil {
		return "", err
	}
	return proofs[0], nil
}

// GetProofByKeysWithCondition is GetProofByKeyWithCondition for
// several keys.
func (p *Provider) GetProofByKeysWithCondition(ctx context.Context, params *protocol.ProofByKeysWithConditionParams) ([]string, error) {
	return p.proofs(ctx, params.Index, params.Keys, params.Condition)
}

func (p *Provider) proofs(ctx context.Context, id string, keys []string, condition protocol.Leaves) ([]string, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", protocol.ErrMalformedParams)
	}
	if err := p.Policies().CheckKeys(len(keys)); err != nil {
		return nil, err
	}
	proofs := make([]string, len(keys))
	err := p.view(ctx, id, func(st *treeState) error {
		depth := st.tree.Depth()
		parsed := make([]merkletree.Key, len(keys))
		for i, k := range keys {
			key, err := protocol.ParseProofKey(depth, k)
			if err != nil {
				return err
			}
			parsed[i] = key
		}
		tree := st.tree
		if len(condition) > 0 {
			entries, err := condition.Entries(depth)
			if err != nil {
				return err
			}
			tree = tree.Clone()
			apply(&treeState{tree: tree}, entries)
		}
		return prove(ctx, tree, parsed, proofs)
	})
	if err != nil {
		return nil, err
	}
	return proofs, nil
}

// prove fills out with the proofs of keys, generated concurrently.
func prove(ctx context.Context, tree *merkletree.FixedTree, keys []merkletree.Key, out []string) error {
	if len(keys) == 1 {
		proof, err := tree.Prove(keys[0])
		if err != nil {
			return err
		}
		out[0] = proof.Hex()
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			proof, err := tree.Prove(key)
			if err != nil {
				return err
			}
			out[i] = proof.Hex()
			return nil
		})
	}
	return g.Wait()
}

// VerifyProof replays a proof and returns the root it commits to. If
// params.Root is set the result tells whether they match.
func (p *Provider) VerifyProof(params *protocol.VerifyProofParams) (*protocol.VerifyProofResult, error) {
	if err := merkletree.CheckDepth(params.Depth); err != nil {
		return nil, err
	}
	key, err := protocol.ParseProofKey(params.Depth, params.Key)
	if err != nil {
		return nil, err
	}
	value, err := protocol.ParseValue(params.Value)
	if err != nil {
		return nil, err
	}
	root, err := merkletree.VerifyHex(params.Depth, key, value, params.Proof)
	if err != nil {
		return nil, err
	}
	res := &protocol.VerifyProofResult{Root: root}
	if params.Root != "" {
		want, err := protocol.ParseValue(params.Root)
		if err != nil {
			return nil, err
		}
		valid := want == root
		res.Valid = &valid
	}
	return res, nil
}
