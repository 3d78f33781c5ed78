package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"

	"github.com/stretchr/testify/require"
)

// Helper to create a new Auction
func newAuction(auctionID string, status model.Status, startingPrice int64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:       auctionID,
		Title:           fmt.Sprintf("%s title", auctionID),
		Description:     fmt.Sprintf("%s description", auctionID),
		StartingPrice:   startingPrice,
		CurrentPrice:    startingPrice,
		MinIncrement:    100,
		StartTime:       now.Add(time.Hour),
		EndTime:         now.Add(2 * time.Hour),
		MaxParticipants: 5,
		Status:          status,
		CreatedAt:       now,
	}
}

// Test CreateAuction
func TestMemoryStore_CreateAuction(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	require.NoError(t, store.CreateAuction(newAuction("a1", model.StatusPending, 1000)))

	err := store.CreateAuction(newAuction("a1", model.StatusPending, 1000))
	require.Error(t, err)
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionExists))
}

// Test GetAuction
func TestMemoryStore_GetAuction(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newAuction("a1", model.StatusPending, 1000)))

	tests := []struct {
		name      string
		auctionID string
		wantError error
	}{
		{name: "existing_auction", auctionID: "a1", wantError: nil},
		{name: "missing_auction", auctionID: "aX", wantError: auctionerrors.ErrAuctionNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, err := store.GetAuction(tc.auctionID)
			if tc.wantError != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.wantError))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.auctionID, a.AuctionID)
			require.Equal(t, int64(1000), a.CurrentPrice)
		})
	}
}

// Snapshots returned by GetAuction must be isolated from the stored state.
func TestMemoryStore_GetAuction_SnapshotIsolation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	a := newAuction("a1", model.StatusActive, 1000)
	a.Participants = []string{"user1"}
	a.Bids = []model.Bid{{BidID: "b1", AuctionID: "a1", UserID: "user1", Amount: 1100, Seq: 1}}
	require.NoError(t, store.CreateAuction(a))

	snapshot, err := store.GetAuction("a1")
	require.NoError(t, err)

	snapshot.Participants = append(snapshot.Participants, "intruder")
	snapshot.Bids[0].Amount = 1
	snapshot.CurrentPrice = 1

	fresh, err := store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, []string{"user1"}, fresh.Participants)
	require.Equal(t, int64(1100), fresh.Bids[0].Amount)
	require.Equal(t, int64(1000), fresh.CurrentPrice)
}

// Test UpdateAuction commit and rollback semantics
func TestMemoryStore_UpdateAuction(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newAuction("a1", model.StatusActive, 1000)))

	// commit on success
	err := store.UpdateAuction("a1", func(a *model.Auction) error {
		a.CurrentPrice = 1500
		a.Participants = append(a.Participants, "user1")
		return nil
	})
	require.NoError(t, err)

	a, err := store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, int64(1500), a.CurrentPrice)
	require.Equal(t, []string{"user1"}, a.Participants)

	// rollback on fn error: no partial mutation survives
	failure := errors.New("rejected")
	err = store.UpdateAuction("a1", func(a *model.Auction) error {
		a.CurrentPrice = 9999
		a.Participants = nil
		return failure
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, failure))

	a, err = store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, int64(1500), a.CurrentPrice)
	require.Equal(t, []string{"user1"}, a.Participants)

	// missing auction
	err = store.UpdateAuction("aX", func(a *model.Auction) error { return nil })
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))
}

// Concurrent updates on the same auction must serialize: every increment lands.
func TestMemoryStore_UpdateAuction_Serialized(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newAuction("a1", model.StatusActive, 0)))

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := store.UpdateAuction("a1", func(a *model.Auction) error {
				a.CurrentPrice++
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, int64(workers), a.CurrentPrice)
}

// A caller that cannot acquire the critical section within the bound fails
// with ErrConcurrencyConflict instead of queueing forever.
func TestMemoryStore_UpdateAuction_LockTimeout(t *testing.T) {
	t.Parallel()

	store := NewMemoryStoreWithTimeout(50 * time.Millisecond)
	require.NoError(t, store.CreateAuction(newAuction("a1", model.StatusActive, 1000)))

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		store.UpdateAuction("a1", func(a *model.Auction) error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding
	err := store.UpdateAuction("a1", func(a *model.Auction) error { return nil })
	close(release)

	require.Error(t, err)
	require.True(t, errors.Is(err, auctionerrors.ErrConcurrencyConflict))
}

// Contention on one auction must not delay another.
func TestMemoryStore_UpdateAuction_PerAuctionGranularity(t *testing.T) {
	t.Parallel()

	store := NewMemoryStoreWithTimeout(time.Second)
	require.NoError(t, store.CreateAuction(newAuction("slow", model.StatusActive, 1000)))
	require.NoError(t, store.CreateAuction(newAuction("fast", model.StatusActive, 1000)))

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		store.UpdateAuction("slow", func(a *model.Auction) error {
			close(holding)
			<-release
			return nil
		})
	}()
	defer close(release)

	<-holding
	start := time.Now()
	err := store.UpdateAuction("fast", func(a *model.Auction) error {
		a.CurrentPrice = 2000
		return nil
	})
	require.NoError(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

// Test ListAuctions
func TestMemoryStore_ListAuctions(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	auctions, err := store.ListAuctions()
	require.NoError(t, err)
	require.Empty(t, auctions)

	require.NoError(t, store.CreateAuction(newAuction("a1", model.StatusPending, 1000)))
	require.NoError(t, store.CreateAuction(newAuction("a2", model.StatusActive, 2000)))

	auctions, err = store.ListAuctions()
	require.NoError(t, err)
	require.Len(t, auctions, 2)

	ids := map[string]bool{}
	for _, a := range auctions {
		ids[a.AuctionID] = true
	}
	require.True(t, ids["a1"])
	require.True(t, ids["a2"])
}
