package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store is the append-only log of posted vouchers. Posting appends a whole
// voucher atomically; voiding appends the offsetting voucher and flips the
// original's status flag. Nothing is ever removed, so every implementation
// can serve balance reads from the raw log.
type Store interface {
	// Append writes a posted voucher with all of its lines, all or nothing.
	Append(ctx context.Context, v Voucher) error
	// UpdateStatus records a status transition for an already appended voucher.
	UpdateStatus(ctx context.Context, id uuid.UUID, status VoucherStatus) error
	// Get returns one appended voucher.
	Get(ctx context.Context, id uuid.UUID) (Voucher, error)
	// Snapshot returns all appended vouchers in posting order. The result is
	// a consistent copy the caller may read without further locking.
	Snapshot(ctx context.Context) ([]Voucher, error)
}

// MemoryStore keeps the ledger in process memory. It is the default store;
// the application started life with no persistence boundary and the posting
// engine does not care which implementation sits behind the interface.
type MemoryStore struct {
	mu       sync.RWMutex
	vouchers []Voucher
	index    map[uuid.UUID]int
}

// NewMemoryStore returns an empty in-memory ledger log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[uuid.UUID]int)}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, v Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.index[v.ID]; exists {
		return fmt.Errorf("ledger: voucher %s already appended", v.ID)
	}
	s.index[v.ID] = len(s.vouchers)
	s.vouchers = append(s.vouchers, v.clone())
	return nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status VoucherStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
	}
	s.vouchers[idx].Status = status
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[id]
	if !ok {
		return Voucher{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
	}
	return s.vouchers[idx].clone(), nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context) ([]Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Voucher, 0, len(s.vouchers))
	for _, v := range s.vouchers {
		out = append(out, v.clone())
	}
	return out, nil
}
