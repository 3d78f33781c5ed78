package notification

import (
	model "auction-engine/internal/models"
	"auction-engine/utils"
)

// SettlementPublisher delivers settlement events to downstream consumers
// (payment, email). Delivery is at-least-once; consumers are expected to be
// idempotent on auction_id.
type SettlementPublisher interface {
	PublishSettlement(event model.SettlementEvent) error
}

// LogPublisher writes settlement events to the structured log. It is the
// default publisher when no broker is configured.
type LogPublisher struct{}

// NewLogPublisher creates a new LogPublisher instance.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// PublishSettlement logs the settlement event.
func (p *LogPublisher) PublishSettlement(event model.SettlementEvent) error {
	utils.Info("auction settled", map[string]any{
		"auction_id":    event.AuctionID,
		"winner":        event.Winner,
		"winner_amount": event.WinnerAmount,
		"closed_at":     event.ClosedAt,
	})
	return nil
}
