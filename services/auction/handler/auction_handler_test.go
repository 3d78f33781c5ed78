package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*MockAuctionServiceInterface, *gin.Engine) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewAuctionHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions", h.CreateAuctionHandler)
	router.GET("/auctions/:auction_id", h.GetAuctionHandler)
	router.POST("/auctions/:auction_id/approve", h.ApproveAuctionHandler)
	router.POST("/auctions/:auction_id/join", h.JoinAuctionHandler)
	router.POST("/auctions/:auction_id/bids", h.PlaceBidHandler)
	router.GET("/auctions/:auction_id/settlement", h.GetSettlementHandler)

	return mockService, router
}

func performRequest(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

func sampleAuction(status model.Status) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:       uuid.NewString(),
		Title:           "vintage camera",
		StartingPrice:   1000,
		CurrentPrice:    1000,
		MinIncrement:    100,
		StartTime:       now.Add(time.Hour),
		EndTime:         now.Add(2 * time.Hour),
		MaxParticipants: 5,
		Status:          status,
		CreatedAt:       now,
	}
}

// Test CreateAuctionHandler
func TestCreateAuctionHandler(t *testing.T) {
	mockService, router := setupHandlerTest(t)
	now := time.Now().UTC()

	validReq := helpers.CreateAuctionRequest{
		Title:           "vintage camera",
		StartingPrice:   1000,
		MinIncrement:    100,
		StartTime:       now.Add(time.Hour).Format(time.RFC3339),
		EndTime:         now.Add(2 * time.Hour).Format(time.RFC3339),
		MaxParticipants: 5,
	}

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name:        "success_valid_auction",
			requestBody: validReq,
			mockSetup: func() {
				mockService.EXPECT().
					CreateAuction(gomock.Any()).
					Return(sampleAuction(model.StatusPending), nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "auction created successfully",
			validateData: func(t *testing.T, data map[string]any) {
				_, parseErr := uuid.Parse(data["auction_id"].(string))
				require.NoError(t, parseErr)
				require.Equal(t, "pending", data["status"])
				require.Equal(t, 1000.0, data["current_price"])
			},
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "unparseable_start_time",
			requestBody: func() helpers.CreateAuctionRequest {
				r := validReq
				r.StartTime = "yesterday"
				return r
			}(),
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "missing_starting_price",
			requestBody: func() helpers.CreateAuctionRequest {
				r := validReq
				r.StartingPrice = 0
				return r
			}(),
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "service_rejects_input",
			requestBody: validReq,
			mockSetup: func() {
				mockService.EXPECT().
					CreateAuction(gomock.Any()).
					Return(model.Auction{}, fmt.Errorf("service: %w - start time must be in the future", auctionerrors.ErrInvalidAuction))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid auction details",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			resp, w := performRequest(t, router, http.MethodPost, "/auctions", tc.requestBody)

			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])
			if tc.validateData != nil {
				tc.validateData(t, resp["data"].(map[string]any))
			}
		})
	}
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	mockService, router := setupHandlerTest(t)
	now := time.Now().UTC()

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name:        "success_valid_bid",
			requestBody: helpers.PlaceBidRequest{UserID: "user1", Amount: 1100},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("a1", "user1", int64(1100)).
					Return(model.Bid{
						BidID:     uuid.NewString(),
						AuctionID: "a1",
						UserID:    "user1",
						Amount:    1100,
						Seq:       1,
						PlacedAt:  now,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
			validateData: func(t *testing.T, data map[string]any) {
				_, parseErr := uuid.Parse(data["bid_id"].(string))
				require.NoError(t, parseErr)
				require.Equal(t, "a1", data["auction_id"])
				require.Equal(t, "user1", data["user_id"])
				require.Equal(t, 1100.0, data["amount"])
				require.Equal(t, 1.0, data["seq"])
			},
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "missing_user_id",
			requestBody:    helpers.PlaceBidRequest{UserID: "", Amount: 1100},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "bid_too_low",
			requestBody: helpers.PlaceBidRequest{UserID: "user1", Amount: 1050},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("a1", "user1", int64(1050)).
					Return(model.Bid{}, fmt.Errorf("service: %w - current price is 1100", auctionerrors.ErrBidTooLow))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "bid amount too low",
		},
		{
			name:        "not_a_participant",
			requestBody: helpers.PlaceBidRequest{UserID: "outsider", Amount: 1200},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("a1", "outsider", int64(1200)).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrNotParticipant))
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "user is not a participant",
		},
		{
			name:        "auction_not_active",
			requestBody: helpers.PlaceBidRequest{UserID: "user1", Amount: 1200},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("a1", "user1", int64(1200)).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotActive))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction not active",
		},
		{
			name:        "contention_is_retryable",
			requestBody: helpers.PlaceBidRequest{UserID: "user1", Amount: 1200},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("a1", "user1", int64(1200)).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrConcurrencyConflict))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "auction busy, retry",
		},
		{
			name:        "auction_not_found",
			requestBody: helpers.PlaceBidRequest{UserID: "user1", Amount: 1200},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("a1", "user1", int64(1200)).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			resp, w := performRequest(t, router, http.MethodPost, "/auctions/a1/bids", tc.requestBody)

			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])
			if tc.validateData != nil {
				tc.validateData(t, resp["data"].(map[string]any))
			}
		})
	}
}

// Test JoinAuctionHandler
func TestJoinAuctionHandler(t *testing.T) {
	mockService, router := setupHandlerTest(t)

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:        "success_join",
			requestBody: helpers.JoinAuctionRequest{UserID: "user1"},
			mockSetup: func() {
				mockService.EXPECT().Join("a1", "user1").Return(3, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "joined auction successfully",
		},
		{
			name:        "auction_full",
			requestBody: helpers.JoinAuctionRequest{UserID: "user1"},
			mockSetup: func() {
				mockService.EXPECT().
					Join("a1", "user1").
					Return(0, fmt.Errorf("service: %w", auctionerrors.ErrAlreadyFull))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction is full",
		},
		{
			name:        "already_joined",
			requestBody: helpers.JoinAuctionRequest{UserID: "user1"},
			mockSetup: func() {
				mockService.EXPECT().
					Join("a1", "user1").
					Return(0, fmt.Errorf("service: %w", auctionerrors.ErrAlreadyJoined))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "user already joined",
		},
		{
			name:        "not_joinable",
			requestBody: helpers.JoinAuctionRequest{UserID: "user1"},
			mockSetup: func() {
				mockService.EXPECT().
					Join("a1", "user1").
					Return(0, fmt.Errorf("service: %w", auctionerrors.ErrNotJoinable))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction not joinable",
		},
		{
			name:           "missing_user_id",
			requestBody:    helpers.JoinAuctionRequest{},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			resp, w := performRequest(t, router, http.MethodPost, "/auctions/a1/join", tc.requestBody)

			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])
		})
	}
}

// Test ApproveAuctionHandler
func TestApproveAuctionHandler(t *testing.T) {
	mockService, router := setupHandlerTest(t)

	t.Run("success_approve", func(t *testing.T) {
		mockService.EXPECT().Approve("a1").Return(sampleAuction(model.StatusApproved), nil)

		resp, w := performRequest(t, router, http.MethodPost, "/auctions/a1/approve", nil)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "auction approved successfully", resp["message"])
		data := resp["data"].(map[string]any)
		require.Equal(t, "approved", data["status"])
	})

	t.Run("already_approved", func(t *testing.T) {
		mockService.EXPECT().
			Approve("a1").
			Return(model.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidTransition))

		resp, w := performRequest(t, router, http.MethodPost, "/auctions/a1/approve", nil)

		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "transition not allowed", resp["message"])
	})
}

// Test GetSettlementHandler
func TestGetSettlementHandler(t *testing.T) {
	mockService, router := setupHandlerTest(t)
	now := time.Now().UTC()

	t.Run("success_settled", func(t *testing.T) {
		mockService.EXPECT().Settlement("a1").Return(model.SettlementEvent{
			AuctionID:    "a1",
			Winner:       "user2",
			WinnerAmount: 1200,
			ClosedAt:     now,
		}, nil)

		resp, w := performRequest(t, router, http.MethodGet, "/auctions/a1/settlement", nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		require.Equal(t, "user2", data["winner"])
		require.Equal(t, 1200.0, data["winner_amount"])
	})

	t.Run("not_settled_yet", func(t *testing.T) {
		mockService.EXPECT().
			Settlement("a1").
			Return(model.SettlementEvent{}, fmt.Errorf("service: %w", auctionerrors.ErrNotSettled))

		resp, w := performRequest(t, router, http.MethodGet, "/auctions/a1/settlement", nil)

		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "auction not settled yet", resp["message"])
	})
}
