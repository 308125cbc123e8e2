package main

import (
	"fmt"
	"os"

	"github.com/nurpe/lensbook/internal/auth"
	"github.com/nurpe/lensbook/internal/config"
	"github.com/nurpe/lensbook/internal/db"
	"github.com/nurpe/lensbook/internal/event"
	"github.com/nurpe/lensbook/internal/excel"
	httphandler "github.com/nurpe/lensbook/internal/http"
	"github.com/nurpe/lensbook/internal/http/middleware"
	"github.com/nurpe/lensbook/internal/logger"
	"github.com/nurpe/lensbook/internal/pdf"
	"github.com/nurpe/lensbook/internal/repository"
	"github.com/nurpe/lensbook/internal/service"
	"github.com/nurpe/lensbook/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	bookingRepo := repository.NewBookingRepository(database)
	contractRepo := repository.NewContractRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	conversationRepo := repository.NewConversationRepository(database)

	hub := ws.NewHub()
	bus := event.NewBus()

	notificationService := service.NewNotificationService(notificationRepo, hub)
	bookingService := service.NewBookingService(bookingRepo, notificationService, hub)
	contractService := service.NewContractService(
		contractRepo,
		bookingRepo,
		bookingRepo,
		pdf.NewGenerator(),
		notificationService,
		cfg.Contracts.RequiredSigners,
	)
	messagingService := service.NewMessagingService(conversationRepo, notificationService, hub, bus)

	// Accepting a proposal spawns a booking through the domain event seam.
	bus.SubscribeProposalAccepted(bookingService.CreateFromProposal)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(
		bookingService,
		contractService,
		notificationService,
		messagingService,
		excel.NewGenerator(),
		log,
	)
	authMiddleware := middleware.Auth(tokenParser)
	wsHandler := ws.Handler(hub, tokenParser, log)
	router := httphandler.NewRouter(handler, authMiddleware, wsHandler, cfg.Environment, cfg.HTTP.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting booking service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
