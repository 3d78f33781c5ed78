package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrAuctionExists       = errors.New("auction already exists")
	ErrConcurrencyConflict = errors.New("auction busy, retry")
)

// State machine errors
var (
	ErrInvalidAuction    = errors.New("invalid auction")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotSettled        = errors.New("auction not settled")
)

// Participant registry errors
var (
	ErrNotJoinable   = errors.New("auction not joinable")
	ErrAlreadyFull   = errors.New("auction is full")
	ErrAlreadyJoined = errors.New("user already joined")
)

// Bid ledger errors
var (
	ErrInvalidBid       = errors.New("invalid bid")
	ErrAuctionNotActive = errors.New("auction not active")
	ErrNotParticipant   = errors.New("user is not a participant")
	ErrBidTooLow        = errors.New("bid amount too low")
)
