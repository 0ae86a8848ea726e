// Package treekv persists the leaves and metadata of sparse Merkle
// trees in a kv.DB, one record per tree id.
package treekv

import (
	"encoding/binary"
	"errors"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/merkletree"
	"github.com/smtprovider/smt-provider/storage/kv"
	"github.com/smtprovider/smt-provider/utils"
)

var (
	// ErrTreeNotFound indicates that no tree is stored under an id.
	ErrTreeNotFound = errors.New("[treekv] Tree not found")
	// ErrBadRecord indicates a stored record which is truncated or
	// has trailing bytes.
	ErrBadRecord = errors.New("[treekv] Bad tree record length")
)

// A TreeRecord is everything stored about a tree.
type TreeRecord struct {
	// Source names the event source feeding the tree, or is empty
	// for trees which are updated manually.
	Source string
	// Marker is the last event source position applied to Leaves.
	Marker uint64
	Leaves *merkletree.LeafSet
}

// Depth returns the depth of the tree.
func (rec *TreeRecord) Depth() uint32 {
	return rec.Leaves.Depth()
}

func treeKey(id string) []byte {
	key := make([]byte, 0, 1+len(id))
	key = append(key, TreeIdentifier)
	key = append(key, id...)
	return key
}

func (rec *TreeRecord) serialize() []byte {
	// depth + marker + len(source) + source + count + (key + value)*
	entries := rec.Leaves.Entries()
	keySize := merkletree.KeySize(rec.Depth())
	buf := make([]byte, 0, 4+8+4+len(rec.Source)+4+len(entries)*(keySize+crypto.HashSizeByte))
	buf = append(buf, utils.UInt32ToBytes(rec.Depth())...)
	buf = append(buf, utils.ULongToBytes(rec.Marker)...)
	buf = append(buf, utils.UInt32ToBytes(uint32(len(rec.Source)))...)
	buf = append(buf, rec.Source...)
	buf = append(buf, utils.UInt32ToBytes(uint32(len(entries)))...)
	for _, e := range entries {
		buf = append(buf, e.Key...)
		buf = append(buf, e.Value[:]...)
	}
	return buf
}

func deserializeTreeRecord(buf []byte) (*TreeRecord, error) {
	if len(buf) < 4+8+4 {
		return nil, ErrBadRecord
	}
	depth := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]
	rec := new(TreeRecord)
	rec.Marker = binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]
	sourceLen := int(binary.LittleEndian.Uint32(buf[:4]))
	buf = buf[4:]
	if len(buf) < sourceLen+4 {
		return nil, ErrBadRecord
	}
	rec.Source = string(buf[:sourceLen])
	buf = buf[sourceLen:]
	count := int(binary.LittleEndian.Uint32(buf[:4]))
	buf = buf[4:]

	if err := merkletree.CheckDepth(depth); err != nil {
		return nil, err
	}
	keySize := merkletree.KeySize(depth)
	if len(buf) != count*(keySize+crypto.HashSizeByte) {
		return nil, ErrBadRecord
	}
	entries := make([]merkletree.Entry, count)
	for i := range entries {
		entries[i].Key = merkletree.Key(buf[:keySize])
		copy(entries[i].Value[:], buf[keySize:keySize+crypto.HashSizeByte])
		buf = buf[keySize+crypto.HashSizeByte:]
	}
	leaves, err := merkletree.NewLeafSetFromEntries(depth, entries)
	if err != nil {
		return nil, err
	}
	rec.Leaves = leaves
	return rec, nil
}

// StoreTree stores rec under id, replacing any previous record.
func StoreTree(db kv.DB, id string, rec *TreeRecord) error {
	wb := db.NewBatch()
	wb.Put(treeKey(id), rec.serialize())
	return db.Write(wb)
}

// LoadTree returns the record stored under id, or ErrTreeNotFound.
func LoadTree(db kv.DB, id string) (*TreeRecord, error) {
	buf, err := db.Get(treeKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrTreeNotFound
	} else if err != nil {
		return nil, err
	}
	return deserializeTreeRecord(buf)
}

// HasTree reports whether a record is stored under id.
func HasTree(db kv.DB, id string) (bool, error) {
	_, err := db.Get(treeKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteTree removes the record stored under id.
func DeleteTree(db kv.DB, id string) error {
	return db.Delete(treeKey(id))
}

// ListTrees returns the ids of all stored trees in ascending order.
func ListTrees(db kv.DB) ([]string, error) {
	it := db.NewIterator(kv.BytesPrefix([]byte{TreeIdentifier}))
	var ids []string
	for ok := it.First(); ok; ok = it.Next() {
		ids = append(ids, string(it.Key()[1:]))
	}
	it.Release()
	return ids, it.Error()
}
