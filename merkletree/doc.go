/*
Package merkletree implements sparse Merkle trees over a bounded key
space together with their compact proofs.

Every leaf of a sparse Merkle tree holds a 32-byte value. The all-zero
value is the implicit default: it means "no entry at this key" and is
never stored. Subtrees which contain only default leaves hash to the
all-zero value as well, which keeps both construction and proofs cheap.

Fixed-depth trees

A fixed-depth tree has depth between 8 and 256 and is addressed by
integer indices in [0, 2^depth). ComputeRoot derives its root from a
LeafSet, ProveKey derives a proof for any index (inclusion or absence)
and Verify replays a proof without the tree. A parent hash is
H(left || right) unless both children are default, in which case it is
default too. This matches the on-chain verifier, which accepts the same
packed proof format. FixedTree keeps every level of the tree in memory
so that an update only touches the nodes on one root-to-leaf path.

Hashed-key trees

A hashed-key tree (Tree) is keyed by 160-bit keys. Its leaves commit to
H(key || value) and a subtree with a single non-default side collapses
to that side's hash, so the tree is only as deep as needed to separate
its keys. Tree.Prove and VerifyTree produce and replay proofs in the
same packed format, walking the key from the most significant bit.
Since interior hashes do not commit to their level, VerifyTree checks
inclusion only; absence is verifiable in fixed-depth trees.

Proof format

A proof is a bitmap of ceil(depth/8) bytes followed by one 32-byte
sibling hash for every set bit. The bitmap is read as a big-endian
integer: bit i (counting from the least significant bit) is set when
the sibling at level i, with level 0 being the leaf level, is not the
default value. Siblings follow in ascending level order. Over the wire
proofs are 0x-prefixed hex strings.

All functions of this package are pure: they never mutate a LeafSet
passed to them, they perform no I/O and are safe for concurrent use on
distinct values. Serializing read-modify-write cycles of a persisted
LeafSet is left to the caller.
*/
package merkletree
