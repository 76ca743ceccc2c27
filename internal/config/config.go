package config

import (
	"time"

	"lookout/pkg/config"
)

// Config stores environment configuration for Lookout.
type Config struct {
	Port                string
	DatabaseURL         string
	PlatformAPIURL      string
	PlatformBearerToken string
	TriggerPhrase       string
	PollInterval        time.Duration
	PollOverlap         time.Duration
	CallTimeout         time.Duration
	ReplyMaxLength      int
	SampleLimit         int
	MaxPublishAttempts  int
	TrustSignals        []string
	PromptTemplateFile  string
	PromptVersion       string
	LLMProvider         string
	LLMModel            string
	LLMAPIKey           string
	LLMAPIURL           string
	LLMMaxTokens        int
	KafkaBrokers        []string
	KafkaClusterID      string
	OutcomeKafkaTopic   string
}

// LoadConfig loads the Lookout configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:                config.GetEnv("PORT", "18080"),
		DatabaseURL:         config.RequireEnv("DATABASE_URL"),
		PlatformAPIURL:      config.GetEnv("PLATFORM_API_URL", ""),
		PlatformBearerToken: config.RequireEnv("PLATFORM_BEARER_TOKEN"),
		TriggerPhrase:       config.GetEnv("LOOKOUT_TRIGGER_PHRASE", "riddle me this"),
		PollInterval:        config.GetEnvDuration("LOOKOUT_POLL_INTERVAL", 60*time.Second),
		PollOverlap:         config.GetEnvDuration("LOOKOUT_POLL_OVERLAP", 2*time.Minute),
		CallTimeout:         config.GetEnvDuration("LOOKOUT_CALL_TIMEOUT", 30*time.Second),
		ReplyMaxLength:      config.GetEnvInt("LOOKOUT_REPLY_MAX_LENGTH", 280),
		SampleLimit:         config.GetEnvInt("LOOKOUT_SAMPLE_LIMIT", 5),
		MaxPublishAttempts:  config.GetEnvInt("LOOKOUT_MAX_PUBLISH_ATTEMPTS", 2),
		TrustSignals:        config.GetEnvList("LOOKOUT_TRUST_SIGNALS", nil),
		PromptTemplateFile:  config.GetEnv("LOOKOUT_PROMPT_TEMPLATE_FILE", ""),
		PromptVersion:       config.GetEnv("LOOKOUT_PROMPT_VERSION", ""),
		LLMProvider:         config.GetEnv("LLM_PROVIDER", ""),
		LLMModel:            config.GetEnv("LLM_MODEL", ""),
		LLMAPIKey:           config.GetEnv("LLM_API_KEY", ""),
		LLMAPIURL:           config.GetEnv("LLM_API_URL", ""),
		LLMMaxTokens:        config.GetEnvInt("LLM_MAX_TOKENS", 1024),
		KafkaBrokers:        config.GetEnvList("KAFKA_BROKERS", nil),
		KafkaClusterID:      config.GetEnv("KAFKA_CLUSTER_ID", "local"),
		OutcomeKafkaTopic:   config.GetEnv("LOOKOUT_OUTCOME_KAFKA_TOPIC", "lookout.analysis_outcomes"),
	}
}
