package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidTransition):
		return http.StatusConflict, "transition not allowed"
	case errors.Is(err, auctionerrors.ErrNotJoinable):
		return http.StatusConflict, "auction not joinable"
	case errors.Is(err, auctionerrors.ErrAlreadyFull):
		return http.StatusConflict, "auction is full"
	case errors.Is(err, auctionerrors.ErrAlreadyJoined):
		return http.StatusConflict, "user already joined"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction not active"
	case errors.Is(err, auctionerrors.ErrNotParticipant):
		return http.StatusForbidden, "user is not a participant"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrNotSettled):
		return http.StatusConflict, "auction not settled yet"
	case errors.Is(err, auctionerrors.ErrConcurrencyConflict):
		return http.StatusServiceUnavailable, "auction busy, retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// ToAuctionResponse converts an auction snapshot into its API shape.
func ToAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:       a.AuctionID,
		Title:           a.Title,
		Description:     a.Description,
		StartingPrice:   a.StartingPrice,
		CurrentPrice:    a.CurrentPrice,
		MinIncrement:    a.MinIncrement,
		StartTime:       a.StartTime.UTC().Format(time.RFC3339),
		EndTime:         a.EndTime.UTC().Format(time.RFC3339),
		MaxParticipants: a.MaxParticipants,
		Status:          string(a.Status),
		Participants:    len(a.Participants),
		BidCount:        len(a.Bids),
		Winner:          a.Winner,
		WinnerAmount:    a.WinnerAmount,
	}
}

// ToBidResponse converts a ledger entry into its API shape.
func ToBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		UserID:    b.UserID,
		Amount:    b.Amount,
		Seq:       b.Seq,
		PlacedAt:  b.PlacedAt.UTC().Format(time.RFC3339Nano),
	}
}
