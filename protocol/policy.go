package protocol

// Policies limits the work a single request can cause.
// A zero limit means no limit.
type Policies struct {
	// MaxKeysPerRequest bounds the number of proofs requested at once.
	MaxKeysPerRequest int `toml:"max_keys_per_request"`
	// MaxLeavesPerTree bounds the number of non-default leaves of a
	// tree after a manual update.
	MaxLeavesPerTree int `toml:"max_leaves_per_tree"`
}

// CheckKeys returns ErrTooManyKeys if n proofs may not be requested at
// once.
func (p Policies) CheckKeys(n int) error {
	if p.MaxKeysPerRequest > 0 && n > p.MaxKeysPerRequest {
		return ErrTooManyKeys
	}
	return nil
}

// CheckLeaves returns ErrTooManyLeaves if a tree may not hold n leaves.
func (p Policies) CheckLeaves(n int) error {
	if p.MaxLeavesPerTree > 0 && n > p.MaxLeavesPerTree {
		return ErrTooManyLeaves
	}
	return nil
}
