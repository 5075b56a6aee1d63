package main

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/router"
	"support-bridge-backend/internal/config"
	"support-bridge-backend/internal/database"
	"support-bridge-backend/internal/env"
	"support-bridge-backend/internal/messaging"
	"support-bridge-backend/internal/queue"
	conversationservice "support-bridge-backend/internal/service/conversation"
	"support-bridge-backend/internal/websocket"
	"log"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	env.Require(env.AWSRegion, env.AgentSecretKey, env.ChatRedisURL)

	routingCfg, err := config.Load(env.Get(env.RoutingConfig))
	if err != nil {
		logger.Fatal("routing config load failed", zap.Error(err))
	}

	db, err := database.NewDatabase()
	if err != nil {
		logger.Fatal("db init failed", zap.Error(err))
	}

	// The ws routes only join rooms, they never generate or summarize, so no
	// responder is wired here.
	gateway := messaging.NewGatewayFromEnv(logger)
	conversations := conversationservice.New(db, nil, routingCfg.InactivityThreshold(), logger)

	hub := websocket.NewHub()
	go hub.Run()
	handler := websocket.NewHandler(hub)

	queueManager := queue.NewRequestQueueManager(100, 10)

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		handler,
		router.UtilsRoutes("/api/ws/v1"),
		router.ConversationWebsocketRoutes("/api/ws/v1", conversations, gateway),
	)

	handler.SubscribeToRedisChannels()

	server.Run()
}
