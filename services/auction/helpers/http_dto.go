package helpers

// Request/Response DTOs
type CreateAuctionRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	StartingPrice   int64  `json:"starting_price" binding:"required,gt=0"`
	MinIncrement    int64  `json:"min_increment" binding:"required,gt=0"`
	StartTime       string `json:"start_time" binding:"required"`
	EndTime         string `json:"end_time" binding:"required"`
	MaxParticipants int    `json:"max_participants" binding:"required,min=1,max=10"`
}

type ModerationRequest struct {
	Reason string `json:"reason"`
}

type JoinAuctionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type PlaceBidRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

type AuctionResponse struct {
	AuctionID       string `json:"auction_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	StartingPrice   int64  `json:"starting_price"`
	CurrentPrice    int64  `json:"current_price"`
	MinIncrement    int64  `json:"min_increment"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxParticipants int    `json:"max_participants"`
	Status          string `json:"status"`
	Participants    int    `json:"participants"`
	BidCount        int    `json:"bid_count"`
	Winner          string `json:"winner,omitempty"`
	WinnerAmount    int64  `json:"winner_amount,omitempty"`
}

type JoinResponse struct {
	AuctionID        string `json:"auction_id"`
	UserID           string `json:"user_id"`
	ParticipantCount int    `json:"participant_count"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Seq       uint64 `json:"seq"`
	PlacedAt  string `json:"placed_at"`
}

type SettlementResponse struct {
	AuctionID    string `json:"auction_id"`
	Winner       string `json:"winner,omitempty"`
	WinnerAmount int64  `json:"winner_amount,omitempty"`
	ClosedAt     string `json:"closed_at"`
}
