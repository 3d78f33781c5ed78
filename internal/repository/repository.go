package repository

import (
	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"fmt"
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long a caller may wait for an auction's
// critical section before receiving ErrConcurrencyConflict.
const DefaultLockTimeout = 2 * time.Second

// AuctionStore defines the auction storage interface for the engine.
// UpdateAuction is the single guarded entry point for mutation: fn runs with
// exclusive ownership of the auction and its changes commit atomically, or
// not at all if fn returns an error.
type AuctionStore interface {
	CreateAuction(a model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions() ([]model.Auction, error)
	UpdateAuction(auctionID string, fn func(a *model.Auction) error) error
}

// entry pairs an auction with its own critical section. The semaphore channel
// gives mutual exclusion with a bounded acquire, so contended callers fail
// fast instead of queueing forever.
type entry struct {
	sem     chan struct{}
	auction model.Auction
}

// MemoryStore is a concurrency-safe in-memory implementation of AuctionStore.
// Locking is per auction: bids and joins on different auctions never block
// each other. The index mutex only guards map lookups and inserts.
type MemoryStore struct {
	mu          sync.RWMutex
	auctions    map[string]*entry
	lockTimeout time.Duration
}

// NewMemoryStore creates a new in-memory store instance.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithTimeout(DefaultLockTimeout)
}

// NewMemoryStoreWithTimeout creates a store with a custom critical-section
// acquire timeout.
func NewMemoryStoreWithTimeout(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		auctions:    make(map[string]*entry),
		lockTimeout: lockTimeout,
	}
}

// CreateAuction inserts a new auction. The ID must be unused.
func (s *MemoryStore) CreateAuction(a model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[a.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", a.AuctionID, auctionerrors.ErrAuctionExists)
	}

	s.auctions[a.AuctionID] = &entry{
		sem:     make(chan struct{}, 1),
		auction: a.Clone(),
	}
	return nil
}

// GetAuction returns a snapshot copy of the auction. The critical section is
// held only long enough to clone, so readers never stall writers meaningfully.
func (s *MemoryStore) GetAuction(auctionID string) (model.Auction, error) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	if err := s.acquire(e, auctionID); err != nil {
		return model.Auction{}, err
	}
	snapshot := e.auction.Clone()
	s.release(e)

	return snapshot, nil
}

// ListAuctions returns snapshot copies of all auctions.
func (s *MemoryStore) ListAuctions() ([]model.Auction, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.auctions))
	for id := range s.auctions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]model.Auction, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAuction(id)
		if err != nil {
			continue // removed between snapshot of ids and read
		}
		out = append(out, a)
	}
	return out, nil
}

// UpdateAuction runs fn inside the auction's critical section. fn receives a
// draft copy; the draft replaces the stored auction only when fn returns nil,
// so a failed or partial mutation is never observable.
func (s *MemoryStore) UpdateAuction(auctionID string, fn func(a *model.Auction) error) error {
	e, err := s.lookup(auctionID)
	if err != nil {
		return err
	}

	if err := s.acquire(e, auctionID); err != nil {
		return err
	}
	defer s.release(e)

	draft := e.auction.Clone()
	if err := fn(&draft); err != nil {
		return err
	}
	e.auction = draft
	return nil
}

func (s *MemoryStore) lookup(auctionID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.auctions[auctionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return e, nil
}

func (s *MemoryStore) acquire(e *entry, auctionID string) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("auction %s: %w", auctionID, auctionerrors.ErrConcurrencyConflict)
	}
}

func (s *MemoryStore) release(e *entry) {
	<-e.sem
}
