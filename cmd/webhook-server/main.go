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
	agentservice "support-bridge-backend/internal/service/agent"
	contextdocservice "support-bridge-backend/internal/service/contextdoc"
	conversationservice "support-bridge-backend/internal/service/conversation"
	webhookservice "support-bridge-backend/internal/service/webhook"
	"context"
	"log"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// Messaging credentials stay optional: the gateway degrades to a no-op
	// without them so the rest of the pipeline keeps working.
	env.Require(env.AWSRegion, env.OpenAIKey)

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
	agents := agentservice.New(db)
	documents := contextdocservice.New(db, routingCfg.ContextDocMaxBytes, routingCfg.ContextBudgetBytes)
	logs := webhookservice.NewDynamoLogRepository(db)

	if _, err := agents.EnsureDefaultAIAgent(context.Background()); err != nil {
		logger.Warn("default assistant setup failed", zap.Error(err))
	}

	pipeline := webhookservice.New(webhookservice.Config{
		Conversations: conversations,
		Prompts:       agents,
		Contexts:      documents,
		Responder:     responder,
		Gateway:       gateway,
		Detector:      routing.NewDetector(routingCfg.EscalationPatterns),
		Resolver:      routing.NewBranchResolver(routingCfg),
		Logs:          logs,
		Logger:        logger,
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(routingCfg.SweepSchedule, func() {
		result, err := conversations.SweepInactive(context.Background())
		if err != nil {
			logger.Error("inactivity sweep failed", zap.Error(err))
			return
		}
		if len(result.Closed) > 0 {
			logger.Info("inactivity sweep closed conversations",
				zap.Int("examined", result.Examined),
				zap.Strings("closed", result.Closed))
		}
	}); err != nil {
		logger.Fatal("invalid sweep schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	queueManager := queue.NewRequestQueueManager(100, 10)

	server := api.NewAPIServer(
		":82",
		queueManager,
		db,
		nil,
		router.UtilsRoutes("/api/public/v1"),
		router.WebhookRoutes("/api/public/v1", pipeline),
	)

	server.Run()
}
