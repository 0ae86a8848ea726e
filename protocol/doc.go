/*
Package protocol defines the messages exchanged between a proof
provider and its clients, and the boundary through which trees are
fed from an external event log.

Messages

Requests and responses follow JSON-RPC 2.0. Every request names one
of the Method* constants and carries the matching *Params value.
Keys are given as 0x-prefixed hex or decimal strings, values and
roots as 0x-prefixed 32-byte hex strings, and proofs in the encoding
produced by merkletree.Proof.Hex.

Error

Every failure is reported as an ErrorObject. Invalid input of any
kind, including keys outside the tree and unknown tree ids, is
reported as ErrorInvalidParams with a human readable reason in Data.

Event source

An EventSource is an ordered log of leaf writes. Trees created from a
source are brought up to date before every read by applying all the
updates past the last applied marker.

Provider

The provider subpackage implements the methods on top of a kv.DB.
*/
package protocol
