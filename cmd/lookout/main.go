package main

import (
	"context"
	"os"

	"lookout/internal/analysis"
	lookoutconfig "lookout/internal/config"
	"lookout/internal/events"
	"lookout/internal/platform"
	"lookout/internal/watch"
	"lookout/pkg/config"
	"lookout/pkg/database"
	"lookout/pkg/llm"
	"lookout/pkg/logging"
	"lookout/pkg/monitoring"
	"lookout/pkg/server"
	"lookout/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("lookout")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Lookout (social trust analysis agent)")

	cfg := lookoutconfig.LoadConfig()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	store := watch.NewEventStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to ensure database schema")
	}
	if recovered, err := store.RecoverInterrupted(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to recover interrupted events")
	} else if recovered > 0 {
		logger.WithField("count", recovered).Warn("Closed events left pending by a previous run")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("lookout", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("lookout", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":          cfg.DatabaseURL,
		"PLATFORM_BEARER_TOKEN": cfg.PlatformBearerToken,
	}))

	var outcomePublisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewPublisher(events.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			ClusterID: cfg.KafkaClusterID,
			Topic:     cfg.OutcomeKafkaTopic,
			Source:    "lookout",
			Logger:    logger,
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to create Kafka outcome publisher - outcome events disabled")
		} else {
			outcomePublisher = publisher
			defer func() { _ = outcomePublisher.Close() }()
			healthChecker.AddCheck("kafka", monitoring.PingHealthCheck("kafka", outcomePublisher))
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set - outcome events disabled")
	}

	platformClient := platform.NewClient(platform.Config{
		BaseURL:     cfg.PlatformAPIURL,
		BearerToken: cfg.PlatformBearerToken,
		Timeout:     cfg.CallTimeout,
		Logger:      logger,
	})

	llmProvider, err := llm.NewProvider(llm.Config{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		APIURL:    cfg.LLMAPIURL,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize LLM provider")
	}

	templateText := ""
	if cfg.PromptTemplateFile != "" {
		raw, err := os.ReadFile(cfg.PromptTemplateFile)
		if err != nil {
			logger.WithError(err).WithField("file", cfg.PromptTemplateFile).Fatal("Failed to read prompt template")
		}
		templateText = string(raw)
	}
	promptBuilder, err := analysis.NewPromptBuilder(templateText, cfg.PromptVersion, cfg.TrustSignals)
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse prompt template")
	}

	analysisClient := analysis.NewClient(analysis.ClientConfig{
		Provider: llmProvider,
		Builder:  promptBuilder,
		Labels:   cfg.TrustSignals,
		Timeout:  cfg.CallTimeout,
		Logger:   logger,
	})

	agentConfig := watch.AgentConfig{
		Source: watch.NewSource(watch.SourceConfig{
			Client:        platformClient,
			TriggerPhrase: cfg.TriggerPhrase,
			Overlap:       cfg.PollOverlap,
			Logger:        logger,
		}),
		Resolver: watch.NewResolver(watch.ResolverConfig{
			Client: platformClient,
			Logger: logger,
		}),
		Aggregator: watch.NewAggregator(watch.AggregatorConfig{
			Client:      platformClient,
			SampleLimit: cfg.SampleLimit,
			Logger:      logger,
		}),
		Analyzer: analysisClient,
		Publisher: watch.NewPublisher(watch.PublisherConfig{
			Client:    platformClient,
			MaxLength: cfg.ReplyMaxLength,
			Logger:    logger,
		}),
		Store:              store,
		Interval:           cfg.PollInterval,
		MaxPublishAttempts: cfg.MaxPublishAttempts,
		Logger:             logger,
	}
	if outcomePublisher != nil {
		agentConfig.Outcomes = outcomePublisher
	}
	agent := watch.NewAgent(agentConfig)
	go agent.Start(context.Background())

	// Health and metrics only; the agent has no request-serving surface.
	router := server.SetupServiceRouter(logger, "lookout", healthChecker, metricsCollector)

	serverConfig := server.DefaultConfig("lookout", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
