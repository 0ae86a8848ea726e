package protocol

import (
	"context"
	"sync"

	"github.com/smtprovider/smt-provider/crypto"
)

// An Update is a single leaf write in an event log. Key is the
// big-endian leaf index, which the reader checks against the depth of
// its tree. Marker is the position of the write in the log; markers
// never decrease.
type Update struct {
	Key    []byte
	Value  crypto.Hash
	Marker uint64
}

// An EventSource is an ordered log of leaf writes.
type EventSource interface {
	// Updates returns, in log order, every update whose marker is
	// greater than since.
	Updates(ctx context.Context, since uint64) ([]Update, error)
}

// MemorySource is an EventSource kept in memory. Each write gets the
// next marker, starting at 1.
type MemorySource struct {
	mu      sync.RWMutex
	updates []Update
}

var _ EventSource = (*MemorySource)(nil)

// NewMemorySource returns an empty log.
func NewMemorySource() *MemorySource {
	return new(MemorySource)
}

// Write appends a write of value at key and returns its marker.
func (s *MemorySource) Write(key []byte, value crypto.Hash) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	marker := uint64(len(s.updates)) + 1
	s.updates = append(s.updates, Update{
		Key:    append([]byte{}, key...),
		Value:  value,
		Marker: marker,
	})
	return marker
}

// Truncate drops every write after marker, as happens to a chain
// which loses a fork. Readers which already applied the dropped writes
// have to be rebuilt from the start.
func (s *MemorySource) Truncate(marker uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if marker < uint64(len(s.updates)) {
		s.updates = s.updates[:marker]
	}
}

// Updates implements EventSource.
func (s *MemorySource) Updates(ctx context.Context, since uint64) ([]Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if since >= uint64(len(s.updates)) {
		return nil, nil
	}
	ups := make([]Update, 0, uint64(len(s.updates))-since)
	for _, u := range s.updates[since:] {
		u.Key = append([]byte{}, u.Key...)
		ups = append(ups, u)
	}
	return ups, nil
}
