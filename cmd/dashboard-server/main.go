package main

import (
	"support-bridge-backend/internal/ai"
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/router"
	"support-bridge-backend/internal/config"
	"support-bridge-backend/internal/database"
	"support-bridge-backend/internal/env"
	"support-bridge-backend/internal/messaging"
	"support-bridge-backend/internal/queue"
	"support-bridge-backend/internal/routing"
	contextdocservice "support-bridge-backend/internal/service/contextdoc"
	conversationservice "support-bridge-backend/internal/service/conversation"
	productservice "support-bridge-backend/internal/service/product"
	webhookservice "support-bridge-backend/internal/service/webhook"
	"log"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	env.Require(env.AWSRegion, env.AgentSecretKey, env.AuthRedisURL, env.OpenAIKey)

	routingCfg, err := config.Load(env.Get(env.RoutingConfig))
	if err != nil {
		logger.Fatal("routing config load failed", zap.Error(err))
	}

	db, err := database.NewDatabase()
	if err != nil {
		logger.Fatal("db init failed", zap.Error(err))
	}

	gateway := messaging.NewGatewayFromEnv(logger)
	responder := ai.NewOpenAIResponder(env.Get(env.OpenAIKey), env.Get(env.OpenAIModel), logger)

	conversations := conversationservice.New(db, responder, routingCfg.InactivityThreshold(), logger)
	documents := contextdocservice.New(db, routingCfg.ContextDocMaxBytes, routingCfg.ContextBudgetBytes)
	products := productservice.New(db)
	logs := webhookservice.NewDynamoLogRepository(db)

	queueManager := queue.NewRequestQueueManager(100, 10)

	const prefix = "/api/dashboard/v1"
	server := api.NewAPIServer(
		":81",
		queueManager,
		db,
		nil,
		router.UtilsRoutes(prefix),
		router.AgentRoutes(prefix),
		router.ConversationRoutes(prefix, conversations, gateway, routing.NewBranchResolver(routingCfg)),
		router.CatalogRoutes(prefix, documents, products),
		router.SystemRoutes(prefix, logs, conversations),
	)

	server.Run()
}
