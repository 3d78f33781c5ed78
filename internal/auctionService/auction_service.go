package auction

import (
	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/notification"
	"auction-engine/internal/repository"
	"auction-engine/utils"
	"fmt"
	"time"

	model "auction-engine/internal/models"
)

// DeadlineScheduler registers time-driven transitions for later firing.
type DeadlineScheduler interface {
	Schedule(auctionID string, kind model.TransitionKind, at time.Time)
}

// StateBroadcaster receives a snapshot after every committed state change,
// for read-only subscribers. Implementations must not block the caller.
type StateBroadcaster interface {
	AuctionUpdated(a model.Auction)
}

// CreateAuctionInput carries the seller-supplied fields for a new auction.
type CreateAuctionInput struct {
	Title           string
	Description     string
	StartingPrice   int64
	MinIncrement    int64
	StartTime       time.Time
	EndTime         time.Time
	MaxParticipants int
}

// AuctionService owns the auction lifecycle: state transitions, participant
// admission, the bid ledger, and settlement. All mutation goes through the
// store's per-auction critical section; side effects (settlement events,
// snapshot broadcasts, deadline registration) run only after a commit.
type AuctionService struct {
	store       repository.AuctionStore
	publisher   notification.SettlementPublisher
	scheduler   DeadlineScheduler
	broadcaster StateBroadcaster
}

// NewAuctionService creates a new AuctionService instance. Settlement events
// go to the structured log until SetPublisher is called.
func NewAuctionService(store repository.AuctionStore) *AuctionService {
	return &AuctionService{
		store:     store,
		publisher: notification.NewLogPublisher(),
	}
}

// SetPublisher replaces the settlement event publisher.
func (s *AuctionService) SetPublisher(p notification.SettlementPublisher) {
	s.publisher = p
}

// SetScheduler wires the deadline scheduler used for start/end transitions.
func (s *AuctionService) SetScheduler(d DeadlineScheduler) {
	s.scheduler = d
}

// SetBroadcaster wires the live-feed broadcaster.
func (s *AuctionService) SetBroadcaster(b StateBroadcaster) {
	s.broadcaster = b
}

// CreateAuction validates the input and stores a new auction in pending
// status, awaiting moderation.
func (s *AuctionService) CreateAuction(in CreateAuctionInput) (model.Auction, error) {
	now := time.Now().UTC()
	if err := validateCreateInput(in, now); err != nil {
		return model.Auction{}, err
	}

	a := model.Auction{
		AuctionID:       utils.GenerateID(),
		Title:           in.Title,
		Description:     in.Description,
		StartingPrice:   in.StartingPrice,
		CurrentPrice:    in.StartingPrice,
		MinIncrement:    in.MinIncrement,
		StartTime:       in.StartTime.UTC(),
		EndTime:         in.EndTime.UTC(),
		MaxParticipants: in.MaxParticipants,
		Status:          model.StatusPending,
		CreatedAt:       now,
	}

	if err := s.store.CreateAuction(a); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}
	return a, nil
}

func validateCreateInput(in CreateAuctionInput, now time.Time) error {
	switch {
	case in.Title == "":
		return fmt.Errorf("service: %w - missing title", auctionerrors.ErrInvalidAuction)
	case in.StartingPrice <= 0:
		return fmt.Errorf("service: %w - starting price must be positive", auctionerrors.ErrInvalidAuction)
	case in.MinIncrement <= 0:
		return fmt.Errorf("service: %w - min increment must be positive", auctionerrors.ErrInvalidAuction)
	case in.MaxParticipants < 1 || in.MaxParticipants > 10:
		return fmt.Errorf("service: %w - max participants must be between 1 and 10", auctionerrors.ErrInvalidAuction)
	case !in.StartTime.After(now):
		return fmt.Errorf("service: %w - start time must be in the future", auctionerrors.ErrInvalidAuction)
	case !in.EndTime.After(in.StartTime):
		return fmt.Errorf("service: %w - end time must be after start time", auctionerrors.ErrInvalidAuction)
	}
	return nil
}

// Approve promotes a pending auction and registers its start/end deadlines.
// Called by the external moderation service.
func (s *AuctionService) Approve(auctionID string) (model.Auction, error) {
	a, err := s.transition(auctionID, model.StatusApproved, "")
	if err != nil {
		return model.Auction{}, err
	}

	if s.scheduler != nil {
		s.scheduler.Schedule(a.AuctionID, model.TransitionActivate, a.StartTime)
		s.scheduler.Schedule(a.AuctionID, model.TransitionClose, a.EndTime)
	}
	s.broadcast(a)
	return a, nil
}

// Reject moves a pending auction to the terminal rejected status.
func (s *AuctionService) Reject(auctionID, reason string) (model.Auction, error) {
	a, err := s.transition(auctionID, model.StatusRejected, reason)
	if err != nil {
		return model.Auction{}, err
	}
	s.broadcast(a)
	return a, nil
}

// Cancel forecloses an auction from any non-terminal status. A cancelled
// auction never settles.
func (s *AuctionService) Cancel(auctionID, reason string) (model.Auction, error) {
	a, err := s.transition(auctionID, model.StatusCancelled, reason)
	if err != nil {
		return model.Auction{}, err
	}
	s.broadcast(a)
	return a, nil
}

// transition applies a guarded status change inside the auction's critical
// section and returns the committed snapshot.
func (s *AuctionService) transition(auctionID string, next model.Status, reason string) (model.Auction, error) {
	var snapshot model.Auction
	err := s.store.UpdateAuction(auctionID, func(a *model.Auction) error {
		if !a.Status.CanTransition(next) {
			return fmt.Errorf("auction %s: %s -> %s: %w", auctionID, a.Status, next, auctionerrors.ErrInvalidTransition)
		}
		a.Status = next
		a.StatusReason = reason
		snapshot = a.Clone()
		return nil
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: transition failed: %w", err)
	}
	return snapshot, nil
}

// Activate opens an approved auction for joining and bidding once its start
// time has been reached.
func (s *AuctionService) Activate(auctionID string, now time.Time) error {
	var snapshot model.Auction
	err := s.store.UpdateAuction(auctionID, func(a *model.Auction) error {
		if a.Status != model.StatusApproved {
			return fmt.Errorf("auction %s: activate from %s: %w", auctionID, a.Status, auctionerrors.ErrInvalidTransition)
		}
		if now.Before(a.StartTime) {
			return fmt.Errorf("auction %s: start time not reached: %w", auctionID, auctionerrors.ErrInvalidTransition)
		}
		a.Status = model.StatusActive
		snapshot = a.Clone()
		return nil
	})
	if err != nil {
		return fmt.Errorf("service: failed to activate auction: %w", err)
	}
	s.broadcast(snapshot)
	return nil
}

// Close ends an active auction once its end time has been reached and settles
// it: the last ledger entry, if any, determines winner and winning amount.
// The settlement event is published after the transition commits and the
// auction is marked settled only after a successful publish, so a crash
// mid-settlement is recovered by calling Close again (consumers see the event
// at least once). Closing an already-settled auction is a no-op.
func (s *AuctionService) Close(auctionID string, now time.Time) error {
	var event *model.SettlementEvent
	var snapshot model.Auction

	err := s.store.UpdateAuction(auctionID, func(a *model.Auction) error {
		switch {
		case a.Status == model.StatusEnded && a.Settled:
			return nil // already closed and settled
		case a.Status == model.StatusEnded:
			// closed but the settlement event never went out; resume
		case a.Status != model.StatusActive:
			return fmt.Errorf("auction %s: close from %s: %w", auctionID, a.Status, auctionerrors.ErrInvalidTransition)
		case now.Before(a.EndTime):
			return fmt.Errorf("auction %s: end time not reached: %w", auctionID, auctionerrors.ErrInvalidTransition)
		default:
			a.Status = model.StatusEnded
			if last, ok := a.LastBid(); ok {
				a.Winner = last.UserID
				a.WinnerAmount = last.Amount
			}
		}
		event = &model.SettlementEvent{
			AuctionID:    a.AuctionID,
			Winner:       a.Winner,
			WinnerAmount: a.WinnerAmount,
			ClosedAt:     now.UTC(),
		}
		snapshot = a.Clone()
		return nil
	})
	if err != nil {
		return fmt.Errorf("service: failed to close auction: %w", err)
	}
	if event == nil {
		return nil
	}

	if err := s.publisher.PublishSettlement(*event); err != nil {
		// Settled stays false; the next Close retries the publish.
		utils.Error("settlement publish failed", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return fmt.Errorf("service: failed to publish settlement: %w", err)
	}

	err = s.store.UpdateAuction(auctionID, func(a *model.Auction) error {
		a.Settled = true
		snapshot = a.Clone()
		return nil
	})
	if err != nil {
		return fmt.Errorf("service: failed to mark auction settled: %w", err)
	}
	s.broadcast(snapshot)
	return nil
}

// Join admits a user into an active, non-full auction. The capacity check and
// the insert happen inside the auction's critical section, so the cap holds
// under concurrent joins. Returns the updated participant count.
func (s *AuctionService) Join(auctionID, userID string) (int, error) {
	if auctionID == "" || userID == "" {
		return 0, fmt.Errorf("service: %w - missing auctionID or userID", auctionerrors.ErrInvalidBid)
	}

	var count int
	var snapshot model.Auction
	err := s.store.UpdateAuction(auctionID, func(a *model.Auction) error {
		if a.Status != model.StatusActive {
			return fmt.Errorf("auction %s is %s: %w", auctionID, a.Status, auctionerrors.ErrNotJoinable)
		}
		if a.HasParticipant(userID) {
			return fmt.Errorf("user %s in auction %s: %w", userID, auctionID, auctionerrors.ErrAlreadyJoined)
		}
		if len(a.Participants) >= a.MaxParticipants {
			return fmt.Errorf("auction %s at capacity %d: %w", auctionID, a.MaxParticipants, auctionerrors.ErrAlreadyFull)
		}
		a.Participants = append(a.Participants, userID)
		count = len(a.Participants)
		snapshot = a.Clone()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("service: failed to join auction: %w", err)
	}
	s.broadcast(snapshot)
	return count, nil
}

// PlaceBid appends a bid for a participant of an active auction. The outbid
// check, the ledger append and the current-price update are one atomic step,
// so of two racing bids at the same amount exactly one wins; the loser is
// re-evaluated against the committed price and rejected. Sequence numbers and
// timestamps are assigned here, at serialization, not from client input.
func (s *AuctionService) PlaceBid(auctionID, userID string, amount int64) (model.Bid, error) {
	if auctionID == "" || userID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - missing auctionID or userID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return model.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	var bid model.Bid
	var snapshot model.Auction
	err := s.store.UpdateAuction(auctionID, func(a *model.Auction) error {
		if a.Status != model.StatusActive {
			return fmt.Errorf("auction %s is %s: %w", auctionID, a.Status, auctionerrors.ErrAuctionNotActive)
		}
		if !a.HasParticipant(userID) {
			return fmt.Errorf("user %s in auction %s: %w", userID, auctionID, auctionerrors.ErrNotParticipant)
		}
		if amount < a.CurrentPrice+a.MinIncrement {
			return fmt.Errorf("%w - current price is %d, min increment %d", auctionerrors.ErrBidTooLow, a.CurrentPrice, a.MinIncrement)
		}

		ts := time.Now().UTC()
		if last, ok := a.LastBid(); ok && !ts.After(last.PlacedAt) {
			ts = last.PlacedAt.Add(time.Nanosecond)
		}
		bid = model.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			UserID:    userID,
			Amount:    amount,
			Seq:       uint64(len(a.Bids) + 1),
			PlacedAt:  ts,
		}
		a.Bids = append(a.Bids, bid)
		a.CurrentPrice = amount
		snapshot = a.Clone()
		return nil
	})
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to place bid: %w", err)
	}
	s.broadcast(snapshot)
	return bid, nil
}

// GetAuction returns a read-only snapshot of the auction.
func (s *AuctionService) GetAuction(auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}
	a, err := s.store.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// ListAuctions returns snapshots of all auctions.
func (s *AuctionService) ListAuctions() ([]model.Auction, error) {
	auctions, err := s.store.ListAuctions()
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// GetBids returns the ordered bid ledger of an auction.
func (s *AuctionService) GetBids(auctionID string) ([]model.Bid, error) {
	a, err := s.GetAuction(auctionID)
	if err != nil {
		return nil, err
	}
	return a.Bids, nil
}

// Settlement returns the settlement outcome of an ended auction.
func (s *AuctionService) Settlement(auctionID string) (model.SettlementEvent, error) {
	a, err := s.GetAuction(auctionID)
	if err != nil {
		return model.SettlementEvent{}, err
	}
	if a.Status != model.StatusEnded {
		return model.SettlementEvent{}, fmt.Errorf("service: auction %s is %s: %w", auctionID, a.Status, auctionerrors.ErrNotSettled)
	}
	return model.SettlementEvent{
		AuctionID:    a.AuctionID,
		Winner:       a.Winner,
		WinnerAmount: a.WinnerAmount,
		ClosedAt:     a.EndTime,
	}, nil
}

// RecoverDeadlines re-registers time-driven transitions after a restart.
// Overdue transitions fire as soon as the scheduler pops them; an ended but
// unsettled auction (crash between close and publish) is re-closed here.
func (s *AuctionService) RecoverDeadlines() error {
	auctions, err := s.store.ListAuctions()
	if err != nil {
		return fmt.Errorf("service: recovery scan failed: %w", err)
	}

	now := time.Now().UTC()
	for _, a := range auctions {
		switch {
		case a.Status == model.StatusApproved && s.scheduler != nil:
			s.scheduler.Schedule(a.AuctionID, model.TransitionActivate, a.StartTime)
			s.scheduler.Schedule(a.AuctionID, model.TransitionClose, a.EndTime)
		case a.Status == model.StatusActive && s.scheduler != nil:
			s.scheduler.Schedule(a.AuctionID, model.TransitionClose, a.EndTime)
		case a.Status == model.StatusEnded && !a.Settled:
			if err := s.Close(a.AuctionID, now); err != nil {
				utils.Error("settlement recovery failed", map[string]any{
					"auction_id": a.AuctionID,
					"error":      err.Error(),
				})
			}
		}
	}
	return nil
}

func (s *AuctionService) broadcast(a model.Auction) {
	if s.broadcaster != nil {
		s.broadcaster.AuctionUpdated(a)
	}
}
