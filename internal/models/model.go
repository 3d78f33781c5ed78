package models

import "time"

// Status is the lifecycle state of an auction. Transitions are one-directional
// and validated through CanTransition; terminal states admit no further change.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// transitions is the closed transition table of the auction state machine.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusActive, StatusCancelled},
	StatusActive:   {StatusEnded, StatusCancelled},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// TransitionKind identifies a time-driven transition for the scheduler.
type TransitionKind string

const (
	TransitionActivate TransitionKind = "activate"
	TransitionClose    TransitionKind = "close"
)

// Bid is an immutable ledger entry. Seq and PlacedAt are assigned by the
// engine at the moment the bid is serialized, never taken from the client.
type Bid struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Seq       uint64    `json:"seq"`
	PlacedAt  time.Time `json:"placed_at"`
}

// Auction is the aggregate root. Monetary amounts are in the smallest
// currency unit. Participants is an append-only set capped at
// MaxParticipants; Bids is an append-only ledger ordered by Seq.
type Auction struct {
	AuctionID       string    `json:"auction_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartingPrice   int64     `json:"starting_price"`
	CurrentPrice    int64     `json:"current_price"`
	MinIncrement    int64     `json:"min_increment"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants int       `json:"max_participants"`
	Status          Status    `json:"status"`
	Participants    []string  `json:"participants"`
	Bids            []Bid     `json:"bids"`
	Winner          string    `json:"winner,omitempty"`
	WinnerAmount    int64     `json:"winner_amount,omitempty"`
	Settled         bool      `json:"settled"`
	StatusReason    string    `json:"status_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Clone returns a deep copy safe to hand to readers or mutate as a draft.
func (a Auction) Clone() Auction {
	c := a
	c.Participants = append([]string(nil), a.Participants...)
	c.Bids = append([]Bid(nil), a.Bids...)
	return c
}

// HasParticipant reports whether userID has joined the auction.
func (a *Auction) HasParticipant(userID string) bool {
	for _, p := range a.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// LastBid returns the most recent ledger entry; the monotonic increase rule
// guarantees it is also the highest.
func (a *Auction) LastBid() (Bid, bool) {
	if len(a.Bids) == 0 {
		return Bid{}, false
	}
	return a.Bids[len(a.Bids)-1], true
}

// SettlementEvent is emitted exactly once per ended auction. Winner is empty
// when the auction closed without bids.
type SettlementEvent struct {
	AuctionID    string    `json:"auction_id"`
	Winner       string    `json:"winner,omitempty"`
	WinnerAmount int64     `json:"winner_amount,omitempty"`
	ClosedAt     time.Time `json:"closed_at"`
}
