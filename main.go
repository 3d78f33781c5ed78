package main

import (
	auction "auction-engine/internal/auctionService"
	"auction-engine/internal/config"
	"auction-engine/internal/live"
	"auction-engine/internal/notification"
	"auction-engine/internal/repository"
	"auction-engine/internal/scheduler"
	"auction-engine/internal/server"
	"auction-engine/utils"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	utils.SetLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	store := repository.NewMemoryStoreWithTimeout(cfg.LockTimeout)
	auctionSvc := auction.NewAuctionService(store)

	if cfg.AMQPURL != "" {
		publisher, err := notification.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			utils.Fatal("failed to connect settlement publisher", map[string]any{"error": err.Error()})
		}
		defer publisher.Close()
		auctionSvc.SetPublisher(publisher)
	}

	hub := live.NewHub()
	auctionSvc.SetBroadcaster(hub)

	sched := scheduler.New(cfg.SchedulerSlack)
	auctionSvc.SetScheduler(sched)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sched.Run(ctx, auctionSvc)

	if err := auctionSvc.RecoverDeadlines(); err != nil {
		utils.Error("deadline recovery failed", map[string]any{"error": err.Error()})
	}

	router := server.SetupRouter(auctionSvc, hub)

	utils.Info("starting auction server", map[string]any{"addr": cfg.Addr})
	if err := router.Run(cfg.Addr); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}
