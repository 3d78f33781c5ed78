package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	auction "auction-engine/internal/auctionService"
	model "auction-engine/internal/models"
	"auction-engine/services/auction/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	CreateAuction(in auction.CreateAuctionInput) (model.Auction, error)
	Approve(auctionID string) (model.Auction, error)
	Reject(auctionID, reason string) (model.Auction, error)
	Cancel(auctionID, reason string) (model.Auction, error)
	Join(auctionID, userID string) (int, error)
	PlaceBid(auctionID, userID string, amount int64) (model.Bid, error)
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions() ([]model.Auction, error)
	GetBids(auctionID string) ([]model.Bid, error)
	Settlement(auctionID string) (model.SettlementEvent, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", fmt.Errorf("start_time: %w", err))
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", fmt.Errorf("end_time: %w", err))
		return
	}

	a, err := h.service.CreateAuction(auction.CreateAuctionInput{
		Title:           req.Title,
		Description:     req.Description,
		StartingPrice:   req.StartingPrice,
		MinIncrement:    req.MinIncrement,
		StartTime:       startTime,
		EndTime:         endTime,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateAuctionHandler: failed to create auction", map[string]any{
			"title": req.Title,
			"error": err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToAuctionResponse(a), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": a.AuctionID,
		"title":      a.Title,
	})
}

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	auctions, err := h.service.ListAuctions()
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListAuctionsHandler: error listing auctions", map[string]any{"error": err.Error()})
		return
	}

	resp := make([]helpers.AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, helpers.ToAuctionResponse(a))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	a, err := h.service.GetAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(a), "auction retrieved successfully")
}

// ApproveAuctionHandler handles POST /auctions/:auction_id/approve
func (h *AuctionHandler) ApproveAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	a, err := h.service.Approve(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ApproveAuctionHandler: approval failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(a), "auction approved successfully")
	helpers.LogSuccess("ApproveAuctionHandler", "auction approved successfully", map[string]any{
		"auction_id": auctionID,
	})
}

// RejectAuctionHandler handles POST /auctions/:auction_id/reject
func (h *AuctionHandler) RejectAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		helpers.HandleBindError(c, "RejectAuctionHandler", err)
		return
	}

	a, err := h.service.Reject(auctionID, req.Reason)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("RejectAuctionHandler: rejection failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(a), "auction rejected successfully")
	helpers.LogSuccess("RejectAuctionHandler", "auction rejected successfully", map[string]any{
		"auction_id": auctionID,
		"reason":     req.Reason,
	})
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		helpers.HandleBindError(c, "CancelAuctionHandler", err)
		return
	}

	a, err := h.service.Cancel(auctionID, req.Reason)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CancelAuctionHandler: cancellation failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(a), "auction cancelled successfully")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled successfully", map[string]any{
		"auction_id": auctionID,
		"reason":     req.Reason,
	})
}

// JoinAuctionHandler handles POST /auctions/:auction_id/join
func (h *AuctionHandler) JoinAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.JoinAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "JoinAuctionHandler", err)
		return
	}

	count, err := h.service.Join(auctionID, req.UserID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("JoinAuctionHandler: join failed", map[string]any{
			"auction_id": auctionID,
			"user_id":    req.UserID,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.JoinResponse{
		AuctionID:        auctionID,
		UserID:           req.UserID,
		ParticipantCount: count,
	}

	utils.JSONResponse(c, http.StatusOK, resp, "joined auction successfully")
	helpers.LogSuccess("JoinAuctionHandler", "joined auction successfully", map[string]any{
		"auction_id":        auctionID,
		"user_id":           req.UserID,
		"participant_count": count,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(auctionID, req.UserID, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"auction_id": auctionID,
			"user_id":    req.UserID,
			"amount":     req.Amount,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": auctionID,
		"user_id":    req.UserID,
		"amount":     bid.Amount,
		"seq":        bid.Seq,
	})
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBids(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.ToBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetSettlementHandler handles GET /auctions/:auction_id/settlement
func (h *AuctionHandler) GetSettlementHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	settlement, err := h.service.Settlement(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetSettlementHandler: settlement error", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := helpers.SettlementResponse{
		AuctionID:    settlement.AuctionID,
		Winner:       settlement.Winner,
		WinnerAmount: settlement.WinnerAmount,
		ClosedAt:     settlement.ClosedAt.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusOK, resp, "settlement retrieved successfully")
	helpers.LogSuccess("GetSettlementHandler", "settlement retrieved successfully", map[string]any{
		"auction_id":    auctionID,
		"winner":        settlement.Winner,
		"winner_amount": settlement.WinnerAmount,
	})
}
