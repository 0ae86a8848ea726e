// Package crypto contains the hashing routines shared by the sparse
// Merkle tree engine, to:
// - hash arbitrary data (`Digest`) using keccak-256
// - represent 32-byte tree hashes and leaf values (`Hash`)
// - encode and decode hashes as 0x-prefixed hex strings.
package crypto
