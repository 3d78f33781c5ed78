package server

import (
	auction "auction-engine/internal/auctionService"
	"auction-engine/internal/live"
	handler "auction-engine/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionService *auction.AuctionService, hub *live.Hub) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(auctionService)

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)

		// moderation surface
		auctions.POST("/:auction_id/approve", auctionHandler.ApproveAuctionHandler)
		auctions.POST("/:auction_id/reject", auctionHandler.RejectAuctionHandler)
		auctions.POST("/:auction_id/cancel", auctionHandler.CancelAuctionHandler)

		auctions.POST("/:auction_id/join", auctionHandler.JoinAuctionHandler)
		auctions.POST("/:auction_id/bids", auctionHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidsHandler)
		auctions.GET("/:auction_id/settlement", auctionHandler.GetSettlementHandler)

		if hub != nil {
			auctions.GET("/:auction_id/live", func(c *gin.Context) {
				hub.Subscribe(c.Writer, c.Request, c.Param("auction_id"))
			})
		}
	}

	return router
}
