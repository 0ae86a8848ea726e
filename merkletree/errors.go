package merkletree

import "errors"

var (
	// ErrInvalidTree indicates a panic due to
	// a malformed operation on the tree.
	ErrInvalidTree = errors.New("[merkletree] Invalid tree")
	// ErrInvalidDepth indicates a depth outside [MinDepth, MaxDepth].
	ErrInvalidDepth = errors.New("[merkletree] Invalid depth")
	// ErrInvalidKey indicates a key outside [0, 2^depth) or a key of
	// the wrong byte length.
	ErrInvalidKey = errors.New("[merkletree] Invalid key")
	// ErrInvalidValue indicates a value which is not 32 bytes, or the
	// default value supplied where a real value is required.
	ErrInvalidValue = errors.New("[merkletree] Invalid value")
	// ErrEmptyInput indicates an attempt to construct a tree from an
	// empty LeafSet.
	ErrEmptyInput = errors.New("[merkletree] Empty leaf set")
	// ErrMalformedProof indicates a proof whose length is inconsistent
	// with its bitmap.
	ErrMalformedProof = errors.New("[merkletree] Malformed proof")
	// ErrKeyNotProvable indicates a proof request for a key outside
	// the addressable range of the tree.
	ErrKeyNotProvable = errors.New("[merkletree] Key not provable")
)
